package entity

// UserRole rol de usuario.
type UserRole string

// Roles válidos para User.
const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleSales   UserRole = "sales"
	RoleCashier UserRole = "cashier"
	RoleStocker UserRole = "stocker"
)

// IsValid informa si el rol es uno de los definidos.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales, RoleCashier, RoleStocker:
		return true
	}
	return false
}

// IsPrivileged: admin y manager omiten las verificaciones de capacidades.
func (r UserRole) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// Capability permiso fino, distinto del rol, con alcance de tienda.
type Capability string

// User identidad del usuario tal como la entrega el componente de sesión externo.
type User struct {
	ID           string
	EnterpriseID string
	StoreID      string // tienda actual
	Email        string
	Name         string
	Role         UserRole
	IsSuperuser  bool
	Capabilities []Capability // de la tienda actual
}

// IsPrivileged incluye a los superusuarios.
func (u *User) IsPrivileged() bool {
	return u != nil && (u.IsSuperuser || u.Role.IsPrivileged())
}
