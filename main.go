package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/gatekeeper/audit"
	"github.com/dev-mohitbeniwal/gatekeeper/config"
	"github.com/dev-mohitbeniwal/gatekeeper/controller"
	"github.com/dev-mohitbeniwal/gatekeeper/dao"
	"github.com/dev-mohitbeniwal/gatekeeper/db"
	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/pdp/cache"
	"github.com/dev-mohitbeniwal/gatekeeper/pdp/engine"
	"github.com/dev-mohitbeniwal/gatekeeper/router"
	"github.com/dev-mohitbeniwal/gatekeeper/service"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()

	// Initialize logger
	logger.InitLogger(cfg.Log.Dir)
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	validationUtil := util.NewValidationUtil()
	notificationService := util.NewNotificationService()
	auditService := newAuditService(cfg.Elasticsearch.URL)

	// Initialize DAOs
	privilegeDAO := dao.NewPrivilegeDAO(db.Neo4jDriver)
	accountDAO := dao.NewAccountDAO(db.Neo4jDriver)
	var tokenStore service.TokenStore = dao.NewTokenDAO(db.RedisClient)
	if cfg.Token.Store == "memory" {
		tokenStore = dao.NewMemoryTokenDAO()
	}

	// Privilege cache and decision engine
	privilegeCache := cache.NewPrivilegeCache(privilegeDAO, cache.Config{
		GroupTTL:        config.Millis(cfg.Cache.GroupTTL),
		UserTTL:         config.Millis(cfg.Cache.UserTTL),
		SweepInterval:   config.Millis(cfg.Cache.SweepInterval),
		MaxGroupEntries: cfg.Cache.MaxGroupEntries,
		MaxUserEntries:  cfg.Cache.MaxUserEntries,
		LoadTimeout:     config.Millis(cfg.Cache.LoadTimeout),
	})
	privilegeCache.Start(ctx)
	defer privilegeCache.Stop()

	if err := db.SubscribePrivilegeFlush(ctx, db.RedisClient, privilegeCache.Flush); err != nil {
		logger.Fatal("Failed to subscribe to privilege flushes", zap.Error(err))
	}

	authorizer := engine.NewAuthorizer(privilegeCache, cfg.Security.AnonymousGroup, router.DefaultPolicy())

	// Initialize services
	services := service.InitializeServices(service.Dependencies{
		Accounts:    accountDAO,
		Tokens:      tokenStore,
		Privileges:  privilegeDAO,
		Cache:       privilegeCache,
		Authorizer:  authorizer,
		Broadcaster: db.FlushBroadcaster{Client: db.RedisClient},
		Audit:       auditService,
	}, service.SecurityConfig{
		TokenLifetime:   config.Millis(cfg.Token.Lifetime),
		MaxFailedLogins: cfg.Security.MaxFailedLogins,
		AvailableRoles:  cfg.Security.AvailableRoles,
		LookupTimeout:   config.Millis(cfg.Token.LookupTimeout),
		SweepInterval:   config.Millis(cfg.Token.SweepInterval),
	}, validationUtil, notificationService, eventBus)
	services.Security.StartSweeper(ctx)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	handler := router.SetupRouter(controller.InitializeControllers(services), router.Options{
		Authenticator:     services.Security,
		Evaluator:         authorizer,
		RedisClient:       db.RedisClient,
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitWindow:   config.Millis(cfg.RateLimit.Window),
	})

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: handler,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	cancel()
	eventBus.Wait()

	logger.Info("Server exiting")
}

// newAuditService returns the Elasticsearch audit log, or a discarding one
// when no URL is configured.
func newAuditService(esURL string) audit.Service {
	if esURL == "" {
		logger.Warn("Elasticsearch URL not configured; audit logs are discarded")
		return audit.Discard{}
	}
	repo, err := audit.NewElasticsearchRepository(esURL)
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	return audit.NewService(repo)
}
