// router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dev-mohitbeniwal/gatekeeper/controller"
	"github.com/dev-mohitbeniwal/gatekeeper/middleware"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

type Options struct {
	Authenticator middleware.Authenticator
	Evaluator     middleware.Evaluator
	// RedisClient backs the login rate limiter. Nil disables it.
	RedisClient       *redis.Client
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1/tenants/:" + middleware.TenantParam)
	api.Use(middleware.Tenant(util.NewValidationUtil()))
	api.Use(middleware.Authenticate(opts.Authenticator))

	guards := controller.Guards{
		Require: func(operation string) gin.HandlerFunc {
			return middleware.RequireOperation(opts.Evaluator, operation)
		},
	}
	if opts.RedisClient != nil && opts.RateLimitRequests > 0 {
		guards.RateLimit = middleware.RateLimiter(opts.RedisClient, opts.RateLimitRequests, opts.RateLimitWindow)
	}

	controllers.RegisterRoutes(api, guards)

	return router
}
