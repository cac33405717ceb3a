// controller/security_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	"github.com/dev-mohitbeniwal/gatekeeper/service"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

// SessionHeader lets a client bind the token to its own session id.
const SessionHeader = "X-Session-Id"

type SecurityController struct {
	securityService service.ISecurityService
}

func NewSecurityController(securityService service.ISecurityService) *SecurityController {
	return &SecurityController{
		securityService: securityService,
	}
}

func (sc *SecurityController) RegisterRoutes(r *gin.RouterGroup, guards Guards) {
	security := r.Group("/security")
	{
		login := []gin.HandlerFunc{guards.Require(OpRequestAccessToken)}
		if guards.RateLimit != nil {
			login = append([]gin.HandlerFunc{guards.RateLimit}, login...)
		}
		security.POST("/access-token", append(login, sc.RequestAccessToken)...)
		security.POST("/access-token/invalidate", guards.Require(OpInvalidateAccessToken), sc.InvalidateAccessToken)
		security.GET("/identity", guards.Require(OpIdentity), sc.GetIdentity)
	}
}

// RequestAccessToken endpoint
func (sc *SecurityController) RequestAccessToken(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid login request", gk_errors.ErrInvalidLoginRequest)
		return
	}
	req.TenantID = util.GetTenantIDFromContext(c)
	req.SessionID = c.GetHeader(SessionHeader)
	req.RemoteAddr = c.ClientIP()

	result, err := sc.securityService.RequestAccessToken(c.Request.Context(), req)
	if err != nil {
		respondWithServiceError(c, err, "Failed to issue access token")
		return
	}

	c.JSON(http.StatusOK, result)
}

// InvalidateAccessToken endpoint
func (sc *SecurityController) InvalidateAccessToken(c *gin.Context) {
	var req model.InvalidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	err := sc.securityService.InvalidateAccessToken(c.Request.Context(), util.GetTenantIDFromContext(c), req.Account, req.AccessToken)
	if err != nil {
		respondWithServiceError(c, err, "Failed to invalidate access token")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetIdentity endpoint
func (sc *SecurityController) GetIdentity(c *gin.Context) {
	identity := util.GetIdentityFromContext(c)
	if identity == nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", gk_errors.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, identity)
}
