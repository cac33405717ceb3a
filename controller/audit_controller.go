// controller/audit_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/gatekeeper/audit"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

type AuditController struct {
	auditService audit.Service
}

func NewAuditController(auditService audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup, guards Guards) {
	r.GET("/audit", guards.Require(OpQueryAudit), ac.QueryLogs)
}

// QueryLogs endpoint. from and to are RFC3339 timestamps.
func (ac *AuditController) QueryLogs(c *gin.Context) {
	query := audit.Query{
		TenantID:  util.GetTenantIDFromContext(c),
		AccountID: c.Query("accountId"),
		Action:    c.Query("action"),
	}

	var err error
	if query.From, err = parseTimeParam(c, "from"); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid from parameter", err)
		return
	}
	if query.To, err = parseTimeParam(c, "to"); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid to parameter", err)
		return
	}

	logs, err := ac.auditService.QueryLogs(c.Request.Context(), query)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit logs", err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

func parseTimeParam(c *gin.Context, name string) (time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
