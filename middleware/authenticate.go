// middleware/authenticate.go
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

// Authenticator is satisfied by service.SecurityService.
type Authenticator interface {
	Authenticate(ctx context.Context, tenantID, token string) (*model.Identity, error)
}

// Authenticate resolves the bearer token, if any, to an identity. Requests
// without a token continue as anonymous. A token that does not resolve is
// recorded on the context and the request continues as anonymous, so that
// RequireOperation can still admit public operations and reject the rest
// with 401.
func Authenticate(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.GetBearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		identity, err := authenticator.Authenticate(c.Request.Context(), util.GetTenantIDFromContext(c), token)
		switch {
		case err == nil:
			c.Set(util.ContextKeyIdentity, identity)
			c.Next()
		case errors.Is(err, gk_errors.ErrStoreUnavailable):
			util.RespondWithError(c, http.StatusServiceUnavailable, "Service unavailable", err)
		default:
			c.Set(util.ContextKeyAuthError, err)
			c.Next()
		}
	}
}
