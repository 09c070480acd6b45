package router

import (
	"time"

	"afipws/internal/afip"
	"afipws/internal/config"
	"afipws/internal/handler"
	"afipws/internal/infra"
	"afipws/internal/middleware"
	"afipws/internal/repository"
	"afipws/internal/service"
	"afipws/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, afipCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	gateway := afip.NewClient(time.Duration(cfg.AFIPTimeoutSeconds) * time.Second)
	dispatcher := worker.NewDispatcher(rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	taxpayerRepo := repository.NewTaxpayerRepository(db)
	ticketRepo := repository.NewAuthTicketRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	validationRepo := repository.NewValidationRepository(db)
	observationRepo := repository.NewObservationRepository(db)
	paramRepo := repository.NewParamTypeRepository(db)
	conditionRepo := repository.NewClientVatConditionRepository(db)
	posRepo := repository.NewPointOfSalesRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(cfg)
	ticketSvc := service.NewTicketService(ticketRepo, taxpayerRepo, gateway, nil)
	sequencerSvc := service.NewSequencerService(receiptRepo, gateway)
	validationSvc := service.NewValidationService(receiptRepo, validationRepo, observationRepo, sequencerSvc, ticketSvc, gateway)
	metadataSvc := service.NewMetadataService(paramRepo, conditionRepo, posRepo, ticketSvc, gateway)
	receiptSvc := service.NewReceiptService(receiptRepo, paramRepo, conditionRepo, posRepo)
	taxpayerSvc := service.NewTaxpayerService(taxpayerRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	receiptsH := handler.NewReceiptsHandler(receiptSvc, validationSvc, receiptRepo, dispatcher)
	taxpayersH := handler.NewTaxpayersHandler(taxpayerSvc, metadataSvc, taxpayerRepo, posRepo)
	metadataH := handler.NewMetadataHandler(metadataSvc, paramRepo)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, afipCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		receipts := v1.Group("/receipts")
		{
			receipts.POST("", receiptsH.Create)
			receipts.GET("", receiptsH.List)
			receipts.GET("/:id", receiptsH.Get)
			receipts.POST("/validate", receiptsH.Validate)
			receipts.POST("/validate-async", receiptsH.ValidateAsync)
			receipts.POST("/:id/revalidate", receiptsH.Revalidate)
			receipts.POST("/:id/approximate-date", receiptsH.ApproximateDate)
		}

		taxpayers := v1.Group("/taxpayers")
		{
			taxpayers.POST("", taxpayersH.Create)
			taxpayers.GET("", taxpayersH.List)
			taxpayers.GET("/:id", taxpayersH.Get)
			taxpayers.POST("/:id/generate-key", taxpayersH.GenerateKey)
			taxpayers.POST("/:id/csr", taxpayersH.GenerateCSR)
			taxpayers.POST("/:id/points-of-sales/sync", taxpayersH.SyncPointsOfSales)
			taxpayers.GET("/:id/points-of-sales", taxpayersH.ListPointsOfSales)
		}

		metadata := v1.Group("/metadata")
		{
			metadata.POST("/populate", metadataH.Populate)
			metadata.GET("/:kind", metadataH.ListKind)
		}
	}

	return r
}
