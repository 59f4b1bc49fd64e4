package dto

import "time"

// DateLayout formato de fechas de asignación (solo día).
const DateLayout = "2006-01-02"

// ModuleResponse módulo del catálogo.
type ModuleResponse struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	DisplayOrder int      `json:"display_order"`
	IsActive     bool     `json:"is_active"`
	DependsOn    []string `json:"depends_on"`
}

// PlanResponse plan comercial y sus módulos.
type PlanResponse struct {
	ID       string   `json:"id"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Modules  []string `json:"modules"`
	IsActive bool     `json:"is_active"`
}

// MatrixResponse matriz efectiva de una tienda.
type MatrixResponse struct {
	StoreID      string            `json:"store_id"`
	Source       string            `json:"source"` // plan | fallback | unknown
	PlanCode     string            `json:"plan_code,omitempty"`
	AssignmentID string            `json:"assignment_id,omitempty"`
	Modules      map[string]bool   `json:"modules"`
	Enabled      []string          `json:"enabled"`
	Reasons      map[string]string `json:"reasons,omitempty"`
	BlockedBy    map[string]string `json:"blocked_by,omitempty"`
}

// OverrideItem directiva de un módulo.
type OverrideItem struct {
	ModuleCode string `json:"module_code"`
	State      string `json:"state"` // INHERIT | ENABLED | DISABLED
	Reason     string `json:"reason"`
}

// OverridesResponse tabla de overrides de una tienda.
type OverridesResponse struct {
	StoreID   string         `json:"store_id"`
	Overrides []OverrideItem `json:"overrides"`
}

// ReplaceOverridesRequest tabla completa; debe incluir todos los módulos del catálogo.
type ReplaceOverridesRequest struct {
	Overrides []OverrideItem `json:"overrides"`
}

// AssignmentResponse asignación de plan.
type AssignmentResponse struct {
	ID           string    `json:"id"`
	EnterpriseID string    `json:"enterprise_id"`
	PlanID       string    `json:"plan_id"`
	PlanCode     string    `json:"plan_code,omitempty"`
	Status       string    `json:"status"`
	StartsOn     string    `json:"starts_on"`
	EndsOn       *string   `json:"ends_on"`
	AutoRenew    bool      `json:"auto_renew"`
	CreatedAt    time.Time `json:"created_at"`
}

// AssignmentListResponse historial de asignaciones, más reciente primero.
type AssignmentListResponse struct {
	Items []AssignmentResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// CreateAssignmentRequest nueva asignación. PlanID acepta ID o código.
type CreateAssignmentRequest struct {
	PlanID    string  `json:"plan_id"`
	Status    string  `json:"status"`
	StartsOn  string  `json:"starts_on"`
	EndsOn    *string `json:"ends_on"`
	AutoRenew bool    `json:"auto_renew"`
}

// AuthorizeRequest destino de navegación a evaluar.
type AuthorizeRequest struct {
	Path    string `json:"path"`
	StoreID string `json:"store_id"` // vacío = tienda del token
}

// AuthorizeResponse decisión del guard.
type AuthorizeResponse struct {
	Decision   string `json:"decision"` // allow | redirect | pending
	RedirectTo string `json:"redirect_to,omitempty"`
	Reason     string `json:"reason"`
	Module     string `json:"module,omitempty"`
}
