// controller/controllers.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/service"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

// Operation names checked against the policy table.
const (
	OpRequestAccessToken    = "security.requestAccessToken"
	OpInvalidateAccessToken = "security.invalidateAccessToken"
	OpIdentity              = "security.identity"
	OpCheckPrivilege        = "privileges.check"
	OpManagePrivileges      = "privileges.manage"
	OpQueryAudit            = "audit.query"
)

// Guards supplies the per-route middleware the router builds.
type Guards struct {
	Require   func(operation string) gin.HandlerFunc
	RateLimit gin.HandlerFunc
}

type Controllers struct {
	Security  *SecurityController
	Privilege *PrivilegeController
	Audit     *AuditController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Security:  NewSecurityController(services.Security),
		Privilege: NewPrivilegeController(services.Privilege),
		Audit:     NewAuditController(services.Audit),
	}
}

func (cs *Controllers) RegisterRoutes(r *gin.RouterGroup, guards Guards) {
	cs.Security.RegisterRoutes(r, guards)
	cs.Privilege.RegisterRoutes(r, guards)
	cs.Audit.RegisterRoutes(r, guards)
}

// respondWithServiceError maps service errors to responses. Login failures
// share one message so callers cannot tell which check failed.
func respondWithServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case gk_errors.IsLoginFailure(err):
		util.RespondWithError(c, http.StatusUnauthorized, "Login failed", err)
	case errors.Is(err, gk_errors.ErrUnauthenticated):
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, gk_errors.ErrForbidden):
		util.RespondWithError(c, http.StatusForbidden, "Forbidden", err)
	case errors.Is(err, gk_errors.ErrInvalidLoginRequest),
		errors.Is(err, gk_errors.ErrInvalidGrant),
		errors.Is(err, gk_errors.ErrPrincipalRequired),
		errors.Is(err, gk_errors.ErrTenantRequired):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, gk_errors.ErrStoreUnavailable):
		util.RespondWithError(c, http.StatusServiceUnavailable, "Service unavailable", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, fallback, err)
	}
}
