package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/entitlements-api/internal/application/dto"
	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/pkg/jwt"
)

// Locals keys en Fiber.
const (
	LocalUserID       = "user_id"
	LocalEnterpriseID = "enterprise_id"
	LocalStoreID      = "store_id"
	LocalRole         = "role"
	LocalSuperuser    = "superuser"
	LocalSession      = "session"
)

// AuthMiddleware valida el Bearer Token JWT, deja los claims en c.Locals y construye
// la sesión que consume el guard de acceso.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}

		caps := make([]entity.Capability, 0, len(claims.Capabilities))
		for _, cp := range claims.Capabilities {
			caps = append(caps, entity.Capability(cp))
		}
		user := &entity.User{
			ID:           claims.UserID,
			EnterpriseID: claims.EnterpriseID,
			StoreID:      claims.StoreID,
			Email:        claims.Email,
			Role:         entity.UserRole(claims.Role),
			IsSuperuser:  claims.Superuser,
			Capabilities: caps,
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEnterpriseID, claims.EnterpriseID)
		c.Locals(LocalStoreID, claims.StoreID)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalSuperuser, claims.Superuser)
		c.Locals(LocalSession, access.NewLoadedSession(user))
		return c.Next()
	}
}

// RequireRole permite el paso solo a los roles indicados. El superusuario no omite
// la lista de roles, igual que en el guard de navegación.
// Debe usarse DESPUÉS de AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permiso para este recurso"})
	}
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string { return localString(c, LocalUserID) }

// GetEnterpriseID devuelve la empresa del token.
func GetEnterpriseID(c *fiber.Ctx) string { return localString(c, LocalEnterpriseID) }

// GetStoreID devuelve la tienda del token.
func GetStoreID(c *fiber.Ctx) string { return localString(c, LocalStoreID) }

// GetRole devuelve el rol del token.
func GetRole(c *fiber.Ctx) string { return localString(c, LocalRole) }

// IsSuperuser informa si el token es de superusuario.
func IsSuperuser(c *fiber.Ctx) bool {
	v, _ := c.Locals(LocalSuperuser).(bool)
	return v
}

// GetSession devuelve la sesión del token; sin AuthMiddleware, una sesión cerrada.
func GetSession(c *fiber.Ctx) *access.Session {
	if s, ok := c.Locals(LocalSession).(*access.Session); ok {
		return s
	}
	s := access.NewSession()
	s.Clear()
	return s
}
