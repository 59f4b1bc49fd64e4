package entity

import "encoding/json"

// EffectiveModuleMatrix estado final habilitado/deshabilitado por módulo para una tienda.
// Es derivada: nunca se persiste y se recalcula cuando cambia cualquier entrada.
type EffectiveModuleMatrix struct {
	StoreID string
	entries map[ModuleCode]bool
}

// NewEffectiveModuleMatrix construye la matriz copiando las entradas.
func NewEffectiveModuleMatrix(storeID string, entries map[ModuleCode]bool) *EffectiveModuleMatrix {
	cp := make(map[ModuleCode]bool, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &EffectiveModuleMatrix{StoreID: storeID, entries: cp}
}

// Enabled es total sobre ModuleCode: un código desconocido resuelve false.
func (m *EffectiveModuleMatrix) Enabled(code ModuleCode) bool {
	if m == nil {
		return false
	}
	return m.entries[code]
}

// Entries devuelve una copia de las entradas.
func (m *EffectiveModuleMatrix) Entries() map[ModuleCode]bool {
	out := make(map[ModuleCode]bool, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// EnabledCodes devuelve los módulos habilitados en el orden de AllModuleCodes.
func (m *EffectiveModuleMatrix) EnabledCodes() []ModuleCode {
	var out []ModuleCode
	for _, c := range AllModuleCodes() {
		if m.entries[c] {
			out = append(out, c)
		}
	}
	return out
}

func (m *EffectiveModuleMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StoreID string              `json:"store_id"`
		Modules map[ModuleCode]bool `json:"modules"`
	}{StoreID: m.StoreID, Modules: m.entries})
}
