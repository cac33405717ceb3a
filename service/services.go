// service/services.go
package service

import (
	"github.com/dev-mohitbeniwal/gatekeeper/audit"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

type Services struct {
	Security  ISecurityService
	Privilege IPrivilegeService
	Audit     audit.Service
}

type Dependencies struct {
	Accounts    AccountDirectory
	Tokens      TokenStore
	Privileges  PrivilegeStore
	Cache       CacheFlusher
	Authorizer  PrivilegeAuthorizer
	Broadcaster FlushBroadcaster
	Audit       audit.Service
}

func InitializeServices(
	deps Dependencies,
	securityConfig SecurityConfig,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *Services {
	return &Services{
		Security: NewSecurityService(deps.Accounts, deps.Tokens, deps.Audit, validationUtil,
			notificationSvc, eventBus, securityConfig),
		Privilege: NewPrivilegeService(deps.Privileges, deps.Cache, deps.Authorizer, deps.Broadcaster,
			deps.Audit, validationUtil, notificationSvc, eventBus),
		Audit: deps.Audit,
	}
}
