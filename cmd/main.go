package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fintrack/fintrack/internal/command"
	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/database"
	"github.com/fintrack/fintrack/internal/handler"
	"github.com/fintrack/fintrack/internal/query"
	"github.com/fintrack/fintrack/internal/repository"
	"github.com/fintrack/fintrack/shared/events"
	"github.com/fintrack/fintrack/shared/middleware"
	sharedredis "github.com/fintrack/fintrack/shared/redis"
	"github.com/fintrack/fintrack/shared/token"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

const auditConsumerGroup = "fintrack-audit"

// app holds everything the router and background workers need.
type app struct {
	tokens         *token.Manager
	blocklist      token.Blocklist
	limiter        middleware.Limiter
	corsOrigins    []string
	trustedProxies []string

	userHandler        *handler.UserHandler
	authHandler        *handler.AuthHandler
	transactionHandler *handler.TransactionHandler

	subscribers []*events.Subscriber
}

// newApp wires repositories, services and handlers. redisClient may be nil, in
// which case caching, events and rate limiting are disabled and revoked tokens
// are kept in memory.
func newApp(cfg *config.Config, db *database.DB, redisClient *goredis.Client, tokens *token.Manager) *app {
	a := &app{tokens: tokens, corsOrigins: cfg.CORSOrigins, trustedProxies: cfg.TrustedProxies}

	var publisher command.EventPublisher
	if redisClient != nil {
		publisher = events.NewPublisher(redisClient)
		a.blocklist = sharedredis.NewTokenBlocklist(redisClient)
		a.limiter = sharedredis.NewFixedWindowLimiter(redisClient, "auth", cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow)
	} else {
		a.blocklist = token.NewMemoryBlocklist()
	}

	// --- CQRS wiring ---
	userRepo := repository.NewUserRepository(db)
	writeRepo := repository.NewTransactionWriteRepository(db)
	readRepo := repository.NewTransactionReadRepository(db, redisClient, cfg.CacheTTL)
	auditRepo := repository.NewAuditRepository(db)

	userCmds := command.NewUserCommandService(userRepo, publisher)
	txCmds := command.NewTransactionCommandService(userRepo, writeRepo, readRepo, publisher)
	authCmds := command.NewAuthCommandService(a.blocklist)
	authQrys := query.NewAuthQueryService(userRepo, tokens)
	txQrys := query.NewTransactionQueryService(userRepo, readRepo)

	a.userHandler = handler.NewUserHandler(userCmds)
	a.authHandler = handler.NewAuthHandler(authCmds, authQrys)
	a.transactionHandler = handler.NewTransactionHandler(txCmds, txQrys)

	if redisClient != nil {
		projector := command.NewAuditProjector(auditRepo)
		for _, stream := range []string{events.UserEventsStream, events.TransactionEventsStream} {
			a.subscribers = append(a.subscribers, events.NewSubscriber(redisClient, events.SubscriberConfig{
				Group:    auditConsumerGroup,
				Consumer: cfg.EventConsumer,
				Stream:   stream,
				Handler:  projector.HandleEvent,
			}))
		}
	}
	return a
}

func setupRouter(a *app) (*gin.Engine, error) {
	router := gin.New()
	// Client IPs feed the auth rate limit, so forwarding headers are only
	// honoured from configured proxies.
	if err := router.SetTrustedProxies(a.trustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(a.corsOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.AuthMiddleware(a.tokens, a.blocklist)

	api := router.Group("/api")
	{
		public := api.Group("")
		if a.limiter != nil {
			public.Use(middleware.RateLimitMiddleware(a.limiter))
		}
		public.POST("/register", a.userHandler.Register)
		public.POST("/login", a.authHandler.Login)

		protected := api.Group("", auth)
		protected.POST("/logout", a.authHandler.Logout)
		protected.POST("/transactions", a.transactionHandler.CreateTransaction)
		protected.GET("/transactions", a.transactionHandler.ListTransactions)
		protected.GET("/transactions/summary", a.transactionHandler.GetSummary)
	}

	return router, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection (write store)
	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis connection (cache, token blocklist, rate limit, event streaming)
	var redisClient *goredis.Client
	if cfg.RedisEnabled() {
		client, err := sharedredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		redisClient = client.Client
	} else {
		log.Println("REDIS_ADDR not set; running without cache, events or rate limiting")
	}

	tokens, err := token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("Failed to configure tokens: %v", err)
	}

	a := newApp(cfg, db, redisClient, tokens)

	for _, sub := range a.subscribers {
		go func(sub *events.Subscriber) {
			if err := sub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Subscriber stopped: %v", err)
			}
		}(sub)
	}

	router, err := setupRouter(a)
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("fintrack API starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
