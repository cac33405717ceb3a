// util/http_util.go
package util

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
)

const (
	ContextKeyTenantID = "tenantID"
	ContextKeyIdentity = "identity"
	// ContextKeyAuthError holds the reason a presented bearer token did not
	// resolve. The request continues as anonymous.
	ContextKeyAuthError = "authError"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.Int("status", code),
		zap.String("tenantID", GetTenantIDFromContext(c)),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

func GetTenantIDFromContext(c *gin.Context) string {
	return c.GetString(ContextKeyTenantID)
}

// GetIdentityFromContext returns nil for anonymous callers.
func GetIdentityFromContext(c *gin.Context) *model.Identity {
	value, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	identity, _ := value.(*model.Identity)
	return identity
}

// GetAuthErrorFromContext returns why the caller's bearer token was not
// accepted, or nil.
func GetAuthErrorFromContext(c *gin.Context) error {
	value, exists := c.Get(ContextKeyAuthError)
	if !exists {
		return nil
	}
	err, _ := value.(error)
	return err
}

// GetBearerToken extracts the token from an "Authorization: Bearer" header.
func GetBearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
