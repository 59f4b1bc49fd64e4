package entity

// OverrideState directiva de una tienda sobre un módulo.
type OverrideState string

const (
	OverrideInherit  OverrideState = "INHERIT"
	OverrideEnabled  OverrideState = "ENABLED"
	OverrideDisabled OverrideState = "DISABLED"
)

// IsValid informa si el estado es un valor reconocido.
func (s OverrideState) IsValid() bool {
	return s == OverrideInherit || s == OverrideEnabled || s == OverrideDisabled
}

// StoreModuleOverride override explícito de un módulo para una tienda.
// Clave única: (StoreID, ModuleCode).
type StoreModuleOverride struct {
	StoreID    string
	ModuleCode ModuleCode
	State      OverrideState
	Reason     string
}
