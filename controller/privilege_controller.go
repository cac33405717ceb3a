// controller/privilege_controller.go
package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	"github.com/dev-mohitbeniwal/gatekeeper/service"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

type PrivilegeController struct {
	privilegeService service.IPrivilegeService
}

func NewPrivilegeController(privilegeService service.IPrivilegeService) *PrivilegeController {
	return &PrivilegeController{
		privilegeService: privilegeService,
	}
}

func (pc *PrivilegeController) RegisterRoutes(r *gin.RouterGroup, guards Guards) {
	privileges := r.Group("/privileges")
	{
		privileges.GET("/check", guards.Require(OpCheckPrivilege), pc.CheckPrivilege)
		privileges.POST("/groups/:group", guards.Require(OpManagePrivileges), pc.GrantGroupPrivilege)
		privileges.DELETE("/groups/:group", guards.Require(OpManagePrivileges), pc.RevokeGroupPrivilege)
		privileges.POST("/users/:user", guards.Require(OpManagePrivileges), pc.GrantUserPrivilege)
		privileges.DELETE("/users/:user", guards.Require(OpManagePrivileges), pc.RevokeUserPrivilege)
		privileges.POST("/flush", guards.Require(OpManagePrivileges), pc.FlushTenant)
	}
}

type privilegeCheckResponse struct {
	Key     string `json:"key"`
	DataID  string `json:"dataId"`
	Granted bool   `json:"granted"`
}

// CheckPrivilege answers for the calling identity, or for the anonymous
// group when no token was presented.
func (pc *PrivilegeController) CheckPrivilege(c *gin.Context) {
	key, dataID := c.Query("key"), c.Query("dataId")
	granted, err := pc.privilegeService.CheckPrivilege(c.Request.Context(),
		util.GetTenantIDFromContext(c), util.GetIdentityFromContext(c), key, dataID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to check privilege")
		return
	}

	c.JSON(http.StatusOK, privilegeCheckResponse{Key: key, DataID: dataID, Granted: granted})
}

type privilegeWrite func(ctx context.Context, tenantID, id string, grant model.Grant, actor *model.Identity) error

func (pc *PrivilegeController) GrantGroupPrivilege(c *gin.Context) {
	pc.writeFromBody(c, c.Param("group"), pc.privilegeService.GrantGroupPrivilege)
}

func (pc *PrivilegeController) RevokeGroupPrivilege(c *gin.Context) {
	pc.writeFromQuery(c, c.Param("group"), pc.privilegeService.RevokeGroupPrivilege)
}

func (pc *PrivilegeController) GrantUserPrivilege(c *gin.Context) {
	pc.writeFromBody(c, c.Param("user"), pc.privilegeService.GrantUserPrivilege)
}

func (pc *PrivilegeController) RevokeUserPrivilege(c *gin.Context) {
	pc.writeFromQuery(c, c.Param("user"), pc.privilegeService.RevokeUserPrivilege)
}

func (pc *PrivilegeController) writeFromBody(c *gin.Context, id string, write privilegeWrite) {
	var grant model.Grant
	if err := c.ShouldBindJSON(&grant); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid privilege grant", gk_errors.ErrInvalidGrant)
		return
	}
	pc.write(c, id, grant, write)
}

func (pc *PrivilegeController) writeFromQuery(c *gin.Context, id string, write privilegeWrite) {
	pc.write(c, id, model.Grant{Key: c.Query("key"), DataID: c.Query("dataId")}, write)
}

func (pc *PrivilegeController) write(c *gin.Context, id string, grant model.Grant, write privilegeWrite) {
	err := write(c.Request.Context(), util.GetTenantIDFromContext(c), id, grant, util.GetIdentityFromContext(c))
	if err != nil {
		respondWithServiceError(c, err, "Failed to update privileges")
		return
	}
	c.Status(http.StatusNoContent)
}

// FlushTenant endpoint
func (pc *PrivilegeController) FlushTenant(c *gin.Context) {
	err := pc.privilegeService.FlushTenant(c.Request.Context(), util.GetTenantIDFromContext(c), util.GetIdentityFromContext(c))
	if err != nil {
		respondWithServiceError(c, err, "Failed to flush privileges")
		return
	}
	c.Status(http.StatusNoContent)
}
