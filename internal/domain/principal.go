package domain

// Principal is the request-scoped representation of an authenticated
// identity. It is rebuilt on every request and never persisted.
type Principal struct {
	Subject string
	Role    Role
	UserID  int64
}
