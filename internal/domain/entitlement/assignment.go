package entitlement

import (
	"time"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// CurrentAssignment elige la asignación vigente del historial: la más reciente por fecha de
// inicio cuyo estado otorga acceso (TRIAL, ACTIVE, PAST_DUE) y cuya ventana contiene today.
// Ante igual fecha de inicio gana la creada más tarde. Devuelve nil si ninguna aplica.
func CurrentAssignment(history []entity.PlanAssignment, today time.Time) *entity.PlanAssignment {
	var current *entity.PlanAssignment
	for i := range history {
		a := &history[i]
		if !a.Status.GrantsAccess() || !a.Covers(today) {
			continue
		}
		if current == nil || newer(a, current) {
			current = a
		}
	}
	if current == nil {
		return nil
	}
	cp := *current
	return &cp
}

func newer(a, b *entity.PlanAssignment) bool {
	as, bs := entity.DateOf(a.StartsOn), entity.DateOf(b.StartsOn)
	if !as.Equal(bs) {
		return as.After(bs)
	}
	return a.CreatedAt.After(b.CreatedAt)
}
