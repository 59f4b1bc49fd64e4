package entitlement

import (
	"time"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// Snapshot datos de una tienda leídos juntos: empresa, banderas, historial de
// asignaciones y overrides. Es la unidad que se cachea e invalida.
type Snapshot struct {
	StoreID      string
	EnterpriseID string // vacío = tienda o empresa inexistente
	Flags        entity.FeatureFlags
	Assignments  []entity.PlanAssignment
	Overrides    []entity.StoreModuleOverride
	FetchedAt    time.Time
}

// Known indica si la tienda pertenece a una empresa existente.
func (s *Snapshot) Known() bool {
	return s != nil && s.EnterpriseID != ""
}

// Inputs arma la entrada del resolvedor para la fecha indicada.
func (s *Snapshot) Inputs(today time.Time) Inputs {
	if s == nil {
		return Inputs{Today: today}
	}
	return Inputs{
		StoreID:      s.StoreID,
		EnterpriseID: s.EnterpriseID,
		Assignments:  s.Assignments,
		Overrides:    s.Overrides,
		Flags:        s.Flags,
		Today:        today,
	}
}
