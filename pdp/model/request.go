package model

import "github.com/dev-mohitbeniwal/gatekeeper/model"

// AccessRequest asks whether identity may run operation on dataID within a
// tenant. A nil identity is an anonymous caller.
type AccessRequest struct {
	TenantID  string
	Identity  *model.Identity
	Operation string
	DataID    string
}
