package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"afipws/internal/afip"
	"afipws/internal/config"
	"afipws/internal/infra"
	"afipws/internal/repository"
	"afipws/internal/router"
	"afipws/internal/service"
	"afipws/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One breaker guards every WSAA/WSFE round trip, shared by the HTTP
	// handlers, the worker pool and the revalidation cron.
	afipCB := infra.NewCircuitBreaker(5, 2, 60*time.Second)

	// Background workers need their own wiring; the router builds a parallel
	// graph over the same db/rdb handles for the request path.
	gateway := afip.NewClient(time.Duration(cfg.AFIPTimeoutSeconds) * time.Second)
	receiptRepo := repository.NewReceiptRepository(db)
	validationRepo := repository.NewValidationRepository(db)
	observationRepo := repository.NewObservationRepository(db)
	ticketRepo := repository.NewAuthTicketRepository(db)
	taxpayerRepo := repository.NewTaxpayerRepository(db)

	ticketSvc := service.NewTicketService(ticketRepo, taxpayerRepo, gateway, nil)
	sequencerSvc := service.NewSequencerService(receiptRepo, gateway)
	validationSvc := service.NewValidationService(receiptRepo, validationRepo, observationRepo, sequencerSvc, ticketSvc, gateway)

	dispatcher := worker.NewDispatcher(rdb)
	locks := infra.NewGroupLock(rdb, 2*time.Minute)

	pool := worker.NewPool(rdb, dispatcher)
	pool.Register("validation", worker.NewValidationWorker(receiptRepo, validationSvc, locks, afipCB))
	pool.Start(ctx, cfg.WorkerPoolSize)

	worker.StartRevalidateCron(ctx, worker.RevalidateCronConfig{
		Receipts:    receiptRepo,
		Validations: validationSvc,
		Breaker:     afipCB,
		RDB:         rdb,
		Interval:    time.Duration(cfg.RevalidateIntervalS) * time.Second,
	})

	r := router.New(cfg, db, rdb, afipCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("afipws backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
