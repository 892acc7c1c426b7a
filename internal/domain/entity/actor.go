package entity

// Role nivel de autoridad de un usuario dentro de los workflows MVA.
type Role string

// Roles válidos.
const (
	RoleMaker    Role = "maker"    // crea solicitudes
	RoleVerifier Role = "verifier" // verifica
	RoleApprover Role = "approver" // aprueba
	RoleReleaser Role = "releaser" // despacha / completa / recibe devoluciones
	RoleAdmin    Role = "admin"
)

// Valid indica si el rol pertenece al conjunto cerrado.
func (r Role) Valid() bool {
	switch r {
	case RoleMaker, RoleVerifier, RoleApprover, RoleReleaser, RoleAdmin:
		return true
	}
	return false
}

// Actor identidad explícita con la que se ejecuta cada operación (nunca un "usuario actual" global).
type Actor struct {
	ID   string
	Name string
	Role Role
}
