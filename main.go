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

	"github.com/dev-mohitbeniwal/echo-cse/audit"
	"github.com/dev-mohitbeniwal/echo-cse/config"
	"github.com/dev-mohitbeniwal/echo-cse/controller"
	"github.com/dev-mohitbeniwal/echo-cse/dao"
	"github.com/dev-mohitbeniwal/echo-cse/db"
	"github.com/dev-mohitbeniwal/echo-cse/federation"
	"github.com/dev-mohitbeniwal/echo-cse/identity"
	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/middleware"
	"github.com/dev-mohitbeniwal/echo-cse/notification"
	"github.com/dev-mohitbeniwal/echo-cse/pdp/engine"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
	"github.com/dev-mohitbeniwal/echo-cse/persistence/memory"
	"github.com/dev-mohitbeniwal/echo-cse/router"
	"github.com/dev-mohitbeniwal/echo-cse/service"
	"github.com/dev-mohitbeniwal/echo-cse/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the resource store
	lockTimeout := config.GetDuration("persistence.lockTimeout")
	var store persistence.Store
	switch engineName := config.GetString("persistence.engine"); engineName {
	case "neo4j":
		if err := db.InitNeo4j(ctx); err != nil {
			logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
		}
		defer db.CloseNeo4j()
		neo4jStore, err := dao.NewResourceStore(ctx, db.Neo4jDriver, lockTimeout)
		if err != nil {
			logger.Fatal("Failed to initialize Neo4j resource store", zap.Error(err))
		}
		store = neo4jStore
	case "memory":
		memoryStore, err := memory.NewStore(lockTimeout)
		if err != nil {
			logger.Fatal("Failed to initialize memory store", zap.Error(err))
		}
		store = memoryStore
	default:
		logger.Fatal("Unknown persistence engine", zap.String("engine", engineName))
	}
	defer store.Close(context.Background())

	// Initialize Redis
	redisEnabled := config.GetBool("redis.enabled")
	if redisEnabled {
		if err := db.InitRedis(ctx); err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer db.CloseRedis()
	}

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	// Initialize audit
	var auditRepository audit.Repository = audit.NewLogRepository()
	if config.GetBool("elasticsearch.enabled") {
		esRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"), config.GetString("elasticsearch.index"))
		if err != nil {
			logger.Fatal("Failed to initialize audit repository", zap.Error(err))
		}
		auditRepository = esRepository
	}
	audit.Subscribe(eventBus, audit.NewService(auditRepository))

	// Initialize identity and access control
	cseID := config.GetString("cse.id")
	adminOriginator := config.GetString("cse.adminOriginator")
	addressing := identity.NewAddressing(cseID, config.GetString("cse.name"))
	uris, err := identity.NewURIMapper()
	if err != nil {
		logger.Fatal("Failed to initialize URI index", zap.Error(err))
	}
	ids := identity.NewGenerator(cseID)
	evaluator, err := engine.NewPolicyEvaluator(
		adminOriginator,
		config.GetInt("acp.cacheSize"),
		engine.NewHTTPConsultant(config.GetDuration("dac.timeout")),
	)
	if err != nil {
		logger.Fatal("Failed to initialize policy evaluator", zap.Error(err))
	}

	// Initialize notification delivery
	notificationTimeout := config.GetDuration("notification.timeout")
	sender := notification.NewMultiSender().
		Register(notification.NewHTTPSender(notificationTimeout), "http", "https")
	if redisEnabled {
		sender.Register(notification.NewRedisSender(db.RedisClient), "redis")
	}
	notifier := notification.NewNotifier(sender, config.GetInt("notification.workers"), notificationTimeout)

	// Initialize federation
	jwtSecret := config.GetString("auth.jwtSecret")
	federationManager := federation.NewManager(cseID, adminOriginator)
	for remoteID, baseURL := range config.GetStringMapString("federation.remotes") {
		federationManager.AddRemote(remoteID, federation.NewHTTPRemote(baseURL, jwtSecret, notificationTimeout))
		logger.Info("Registered remote CSE", zap.String("cseID", remoteID), zap.String("url", baseURL))
	}

	// Initialize controller and services
	resourceController := controller.NewController(controller.Dependencies{
		Store:      store,
		URIs:       uris,
		IDs:        ids,
		Addressing: addressing,
		Evaluator:  evaluator,
		Notifier:   notifier,
		Federation: federationManager,
		EventBus:   eventBus,
		MaxLevel:   config.GetInt("retrieve.maxLevel"),
		MaxResults: config.GetInt("retrieve.maxResults"),
	})
	cseService := service.NewCSEService(resourceController, addressing, uris, federationManager)
	federationManager.SetLocal(cseService)

	if _, err := service.Bootstrap(ctx, store, uris, ids, service.BootstrapConfig{
		Addressing:              addressing,
		AdminOriginator:         adminOriginator,
		RegistrationOriginators: config.GetStringSlice("cse.registrationOriginators"),
	}); err != nil {
		logger.Fatal("Failed to bootstrap CSEBase", zap.Error(err))
	}

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	handlers := []gin.HandlerFunc{middleware.OriginatorAuth(jwtSecret)}
	if redisEnabled {
		handlers = append(handlers, middleware.RateLimiter(
			db.RateLimit,
			config.GetInt("ratelimit.requests"),
			config.GetDuration("ratelimit.per"),
		))
	}
	engineRouter := router.SetupRouter(router.NewCSEHandler(cseService, 0), handlers...)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engineRouter,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("port", config.GetString("server.port")),
			zap.String("cseID", cseID))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	eventBus.Wait()

	logger.Info("Server exiting")
}
