// middleware/operation.go
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

// Evaluator is satisfied by engine.Authorizer.
type Evaluator interface {
	Evaluate(ctx context.Context, request pdp_model.AccessRequest) (pdp_model.AccessDecision, error)
}

// RequireOperation admits the request only if the policy allows the caller
// to run operation. A caller whose bearer token was not accepted is judged
// as anonymous and gets 401 instead of 403 when denied. The data id, when the operation needs one, is read from
// the dataId query parameter.
func RequireOperation(evaluator Evaluator, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := pdp_model.AccessRequest{
			TenantID:  util.GetTenantIDFromContext(c),
			Identity:  util.GetIdentityFromContext(c),
			Operation: operation,
			DataID:    c.Query("dataId"),
		}

		decision, err := evaluator.Evaluate(c.Request.Context(), request)
		if err != nil {
			util.RespondWithError(c, http.StatusServiceUnavailable, "Service unavailable", err)
			return
		}
		if !decision.Allowed() {
			if authErr := util.GetAuthErrorFromContext(c); authErr != nil {
				util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", authErr)
				return
			}
			logger.Info("Operation denied",
				zap.String("tenantID", request.TenantID),
				zap.String("operation", operation),
				zap.String("reason", decision.Reason))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Next()
	}
}
