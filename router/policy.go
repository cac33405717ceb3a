// router/policy.go
package router

import (
	"github.com/dev-mohitbeniwal/gatekeeper/controller"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/pdp/model"
)

// AdministratorRole is required to change privileges or read the audit log.
const AdministratorRole = "administrator"

// DefaultPolicy declares every operation the API exposes. The security
// operations are public: the password or token is itself the credential.
func DefaultPolicy() pdp_model.Policy {
	return pdp_model.Policy{
		controller.OpRequestAccessToken:    {Public: true},
		controller.OpInvalidateAccessToken: {Public: true},
		controller.OpIdentity:              {Authenticated: true},
		controller.OpCheckPrivilege:        {Public: true},
		controller.OpManagePrivileges:      {Authenticated: true, Roles: []string{AdministratorRole}},
		controller.OpQueryAudit:            {Authenticated: true, Roles: []string{AdministratorRole}},
	}
}
