package entity

import "time"

// Roles de usuario. El rol md (managing director) autoriza operaciones
// privilegiadas del lado servidor: bajas de stock, reversas de restock y
// actualización masiva de precios. Nunca se confía en banderas del cliente.
const (
	RoleMD       = "md"
	RoleEmployee = "employee"
)

// User representa un usuario de la aplicación.
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string
	Name         string
	Role         string // md | employee
	Status       string // active | disabled
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
