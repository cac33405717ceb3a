// middleware/logger.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

// Logger logs every request once it has been handled. Query strings are not
// logged; they may carry data ids the caller considers sensitive.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("tenantID", util.GetTenantIDFromContext(c)),
		}
		if identity := util.GetIdentityFromContext(c); identity != nil {
			fields = append(fields, zap.String("userID", identity.UserID))
		}

		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				logger.Error("Request error", append(fields, zap.String("error", e))...)
			}
			return
		}
		logger.Info("Request processed", fields...)
	}
}
