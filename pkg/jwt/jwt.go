package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// Rol, tienda y capacidades viajan en el token para que el guard decida sin consultar la DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string   `json:"user_id"`
	EnterpriseID string   `json:"enterprise_id"`
	StoreID      string   `json:"store_id,omitempty"`
	Email        string   `json:"email,omitempty"`
	Role         string   `json:"role"` // "admin" | "manager" | "sales" | "cashier" | "stocker"
	Superuser    bool     `json:"superuser,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Identity datos del usuario que se firman en el token.
type Identity struct {
	UserID       string
	EnterpriseID string
	StoreID      string
	Email        string
	Role         string
	Superuser    bool
	Capabilities []string
}

// Generate genera un token JWT firmado con la identidad del usuario.
func Generate(secret, issuer string, expMinutes int, id Identity) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:       id.UserID,
		EnterpriseID: id.EnterpriseID,
		StoreID:      id.StoreID,
		Email:        id.Email,
		Role:         id.Role,
		Superuser:    id.Superuser,
		Capabilities: id.Capabilities,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida el token y devuelve sus claims.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	return claims, nil
}
