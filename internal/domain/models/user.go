package models

// Roles understood by the auth service.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User is a local operator account.
type User struct {
	Base
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"`
}
