package entity

import "time"

// FeatureFlags banderas crudas de la empresa. Una bandera ausente se considera habilitada.
type FeatureFlags map[string]bool

// Enabled devuelve el valor de la bandera; true si no está definida.
func (f FeatureFlags) Enabled(name string) bool {
	v, ok := f[name]
	if !ok {
		return true
	}
	return v
}

// Enterprise representa la organización/tenant que contrata planes.
type Enterprise struct {
	ID           string
	Name         string
	Status       string // active, suspended, inactive
	FeatureFlags FeatureFlags
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store unidad operativa de una empresa; ámbito de overrides y capacidades.
type Store struct {
	ID           string
	EnterpriseID string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
