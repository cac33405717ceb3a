package model

// Requirement declares what a caller needs to invoke an operation. Every
// condition that is set must hold.
type Requirement struct {
	// Public operations are open to anonymous callers.
	Public bool
	// Authenticated requires a bearer identity.
	Authenticated bool
	// Roles, when non-empty, requires at least one of them.
	Roles []string
	// PrivilegeKey, when set, requires the privilege on the request's data id.
	PrivilegeKey string
}

// Policy maps operation names to their requirements. Operations missing from
// the table are denied.
type Policy map[string]Requirement

// AnonymousRole is the single role held by unauthenticated callers.
const AnonymousRole = "anonymous"
