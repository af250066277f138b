package core

// Roles carried by the authorization context.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Identity is the verified authorization context built once at the request
// boundary and passed into core operations. Core logic never re-decodes
// tokens.
type Identity struct {
	Role     string
	ClientID uint // zero for admins
}

func (i Identity) IsAdmin() bool  { return i.Role == RoleAdmin }
func (i Identity) IsClient() bool { return i.Role == RoleClient }

// Owns reports whether the identity is the client owning the given record.
func (i Identity) Owns(clientID uint) bool {
	return i.IsClient() && i.ClientID == clientID
}
