package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/entitlements-api/internal/application/dto"
	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// RetryAfterSeconds valor de Retry-After cuando la decisión queda pendiente.
const RetryAfterSeconds = 2

// accessAuthorizer es el contrato mínimo que necesita el middleware.
// Lo implementa el servicio de entitlements; la interfaz evita el import circular.
type accessAuthorizer interface {
	Authorize(ctx context.Context, session *access.Session, storeID string, req access.Requirement) access.Decision
}

// RequireAccess aplica el guard de acceso a la ruta. Usar DESPUÉS de AuthMiddleware.
// La tienda se toma del parámetro :storeID si existe, si no del token.
//
// Comportamiento:
//   - Pending → 503 con Retry-After (la matriz aún no está disponible).
//   - Sin sesión → 401 con Location al login.
//   - Rol, módulo o capacidad insuficientes → 403 con Location al tablero.
func RequireAccess(req access.Requirement, authz accessAuthorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID := c.Params("storeID")
		if storeID == "" {
			storeID = GetStoreID(c)
		}
		d := authz.Authorize(c.UserContext(), GetSession(c), storeID, req)
		return decisionResponse(c, d)
	}
}

// RequireModule atajo de RequireAccess para un solo módulo.
func RequireModule(code entity.ModuleCode, authz accessAuthorizer) fiber.Handler {
	return RequireAccess(access.Requirement{RequiredModules: []entity.ModuleCode{code}}, authz)
}

func decisionResponse(c *fiber.Ctx, d access.Decision) error {
	switch d.Kind {
	case access.DecisionAllow:
		return c.Next()
	case access.DecisionPending:
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(RetryAfterSeconds))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code:    "ACCESS_PENDING",
			Message: "la verificación de acceso aún no está disponible, intente más tarde",
		})
	}

	c.Set(fiber.HeaderLocation, d.RedirectTo)
	if d.Reason == access.ReasonUnauthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHENTICATED", Message: "sesión requerida"})
	}
	msg := "acceso denegado"
	code := "FORBIDDEN"
	if d.Reason == access.ReasonModuleDisabled {
		code = "MODULE_DISABLED"
		msg = "el módulo '" + string(d.Module) + "' no está activo para esta tienda"
	}
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
