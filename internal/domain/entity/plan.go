package entity

// Plan paquete comercial que otorga un conjunto fijo de módulos.
type Plan struct {
	ID          string
	Code        string
	Name        string
	ModuleCodes []ModuleCode
	IsActive    bool // false = ya no se vende; las asignaciones existentes siguen vigentes
}

// Grants informa si el plan incluye el módulo.
func (p *Plan) Grants(code ModuleCode) bool {
	if p == nil {
		return false
	}
	for _, c := range p.ModuleCodes {
		if c == code {
			return true
		}
	}
	return false
}
