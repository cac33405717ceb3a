// middleware/tenant.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

// TenantParam is the route parameter that names the tenant.
const TenantParam = "tenant"

// Tenant validates the tenant route parameter and stores it on the context.
func Tenant(validationUtil *util.ValidationUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param(TenantParam)
		if err := validationUtil.ValidateTenantID(tenantID); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid tenant", err)
			return
		}
		c.Set(util.ContextKeyTenantID, tenantID)
		c.Next()
	}
}
