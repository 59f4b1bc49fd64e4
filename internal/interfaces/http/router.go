package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/entitlements-api/internal/application/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Entitlements *entitlement.Service
	Metrics      *metrics.Metrics
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	h := NewEntitlementHandler(deps.Entitlements)
	managers := access.Requirement{AllowedRoles: []entity.UserRole{entity.RoleAdmin, entity.RoleManager}}
	admins := access.Requirement{AllowedRoles: []entity.UserRole{entity.RoleAdmin}}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Catálogos
	api.Get("/modules", h.ListModules)
	api.Get("/plans", h.ListPlans)

	// Matriz efectiva
	api.Get("/me/modules", h.GetMyModules)
	stores := api.Group("/stores/:storeID")
	stores.Get("/modules", h.GetStoreModules)
	stores.Get("/overrides", RequireRole(string(entity.RoleAdmin), string(entity.RoleManager)), h.GetOverrides)
	stores.Put("/overrides", RequireAccess(managers, deps.Entitlements), h.ReplaceOverrides)

	// Asignaciones de plan
	enterprises := api.Group("/enterprises/:enterpriseID")
	enterprises.Get("/assignments", RequireRole(string(entity.RoleAdmin), string(entity.RoleManager)), h.ListAssignments)
	enterprises.Get("/assignments/current", h.CurrentAssignment)
	enterprises.Post("/assignments", RequireAccess(admins, deps.Entitlements), h.CreateAssignment)

	// Guard de navegación
	api.Post("/access/authorize", h.Authorize)
}
