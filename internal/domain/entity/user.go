package entity

const (
	RoleVendor = "vendor"
	RoleClient = "client"
)

// User is the identity the session runs as, resolved once at login by the
// identity provider. ID is the stable key for "is this my own message".
type User struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}
