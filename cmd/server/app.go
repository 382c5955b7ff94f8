package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sportcast/backend/config"
	"github.com/sportcast/backend/internal/analytics"
	"github.com/sportcast/backend/internal/auth"
	"github.com/sportcast/backend/internal/chat"
	"github.com/sportcast/backend/internal/ingest"
	"github.com/sportcast/backend/internal/memstore"
	"github.com/sportcast/backend/internal/middleware"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/internal/presence"
	"github.com/sportcast/backend/internal/realtime"
	"github.com/sportcast/backend/internal/streams"
	"github.com/sportcast/backend/internal/subscriptions"
	"github.com/sportcast/backend/internal/worker"
	"github.com/sportcast/backend/pkg/response"
)

// stores is the persistence layer the components run on.
type stores struct {
	driver        string
	streams       streams.Store
	counter       presence.Counter
	analytics     analytics.Store
	messages      chat.Store
	subscriptions subscriptions.Store
}

func memoryStores() stores {
	db := memstore.New()
	return stores{
		driver:        config.StoreDriverMemory,
		streams:       db.Streams(),
		counter:       db.Streams(),
		analytics:     db.Analytics(),
		messages:      db.Messages(),
		subscriptions: db.Subscriptions(),
	}
}

func postgresStores(pool *pgxpool.Pool) stores {
	streamRepo := streams.NewRepository(pool)
	return stores{
		driver:        "postgres",
		streams:       streamRepo,
		counter:       streamRepo,
		analytics:     analytics.NewRepository(pool),
		messages:      chat.NewRepository(pool),
		subscriptions: subscriptions.NewRepository(pool),
	}
}

// deps are the optional collaborators; nil fields disable the feature.
type deps struct {
	cfg        *config.Config
	stores     stores
	bridge     realtime.Bridge
	reconcile  streams.ReconcileEnqueuer
	jobs       worker.DeadLetters
	thumbnails streams.Thumbnails
	billing    subscriptions.Provider
	logger     *zap.Logger
}

type app struct {
	bus        *realtime.Bus
	registry   *streams.Registry
	aggregator *analytics.Aggregator
	router     *gin.Engine
}

func newApp(d deps) *app {
	logger := d.logger
	cfg := d.cfg

	bus := realtime.NewBus(logger, d.bridge)
	aggregator := analytics.NewAggregator(d.stores.analytics, logger)
	urls := streams.URLBuilder{RTMPBase: cfg.Ingest.RTMPBaseURL, HLSBase: cfg.Ingest.HLSBaseURL}
	registry := streams.NewRegistry(d.stores.streams, aggregator, bus, urls, logger)
	if d.reconcile != nil {
		registry.SetReconcileQueue(d.reconcile)
	}

	presenceSvc := presence.NewService(d.stores.counter, aggregator, bus, logger)
	chatSvc := chat.NewService(d.stores.messages, d.stores.streams, aggregator, bus, logger)
	bridge := ingest.NewBridge(registry, chatSvc, logger)
	subsSvc := subscriptions.NewService(d.stores.subscriptions, d.billing, subscriptions.Config{
		SuccessURL:    cfg.Billing.SuccessURL,
		CancelURL:     cfg.Billing.CancelURL,
		WebhookSecret: cfg.Billing.WebhookSecret,
	}, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	streamHandler := streams.NewHandler(registry, d.thumbnails, logger)
	presenceHandler := presence.NewHandler(presenceSvc)
	chatHandler := chat.NewHandler(chatSvc)
	analyticsHandler := analytics.NewHandler(aggregator, d.stores.streams)
	ingestHandler := ingest.NewHandler(bridge, logger)
	subsHandler := subscriptions.NewHandler(subsSvc, logger)
	jobsHandler := worker.NewHandler(d.jobs, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "store": d.stores.driver, "bus": bus.Stats()})
	})

	// Public reads; a token, when present, reveals owner-only fields
	public := router.Group("/streams", middleware.OptionalJWT(jwtService))
	{
		public.GET("", streamHandler.List)
		public.GET("/live", streamHandler.Live)
		public.GET("/:id", streamHandler.Get)
		public.GET("/:id/messages", chatHandler.List)
		public.POST("/:id/join", presenceHandler.Join)
		public.POST("/:id/leave", presenceHandler.Leave)
	}

	// Protected API (JWT required)
	api := router.Group("", middleware.JWT(jwtService))
	{
		api.GET("/streams/mine", streamHandler.Mine)
		api.POST("/streams", streamHandler.Create)
		api.POST("/streams/regenerate-key", streamHandler.RegenerateKey)
		api.PATCH("/streams/:id", streamHandler.Update)
		api.DELETE("/streams/:id", streamHandler.Delete)
		api.POST("/streams/:id/start", streamHandler.Start)
		api.POST("/streams/:id/end", streamHandler.End)
		api.PUT("/streams/:id/score", streamHandler.UpdateScore)
		api.GET("/streams/:id/analytics", analyticsHandler.GetByStream)
		api.POST("/streams/:id/messages", chatHandler.Send)
		api.POST("/streams/:id/thumbnail/upload-url", streamHandler.ThumbnailUploadURL)
		api.POST("/streams/:id/thumbnail", streamHandler.UploadThumbnail)

		api.GET("/subscription", subsHandler.Get)
		api.POST("/subscription/checkout", subsHandler.Checkout)
	}

	// Admin API
	admin := router.Group("/admin", middleware.JWT(jwtService), middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/streams/:id/reconcile", analyticsHandler.Reconcile)
		admin.GET("/jobs", jobsHandler.List)
		admin.POST("/jobs/requeue", jobsHandler.Requeue)
	}

	// Webhooks (no JWT; ingest callbacks are trusted by network placement, billing is signed)
	ingestHandler.Register(router.Group("/webhooks/ingest"))
	router.POST("/webhooks/billing", subsHandler.Webhook)

	// WebSocket subscriptions (public, filtered by stream_id)
	router.GET("/ws", realtime.ServeWs(bus, logger))

	return &app{bus: bus, registry: registry, aggregator: aggregator, router: router}
}
