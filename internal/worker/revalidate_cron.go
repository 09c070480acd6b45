package worker

// Background reconciliation for receipts whose submission was cut short: the
// number was committed but no answer arrived, so AFIP may or may not have
// approved them. Each tick asks AFIP for their remote state through the
// circuit breaker; receipts AFIP approved get their validation persisted,
// the rest have their numbers released once AFIP denies knowing them.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"afipws/internal/infra"
	"afipws/internal/model"
	"afipws/internal/repository"
	"afipws/internal/service"
)

const (
	revalidateBatchSize   = 10
	maxRevalidateAttempts = 5
	// attemptTTL bounds how long a receipt's failure counter survives
	// without new attempts.
	attemptTTL = 24 * time.Hour
)

// RevalidateCronConfig holds the reconciliation loop's dependencies.
type RevalidateCronConfig struct {
	Receipts    repository.ReceiptRepository
	Validations service.ValidationService
	Breaker     *infra.CircuitBreaker
	RDB         *redis.Client
	Interval    time.Duration
}

// StartRevalidateCron launches the reconciliation goroutine. It stops when
// ctx is cancelled.
func StartRevalidateCron(ctx context.Context, cfg RevalidateCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("revalidation cron started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("revalidation cron shutting down")
				return
			case <-ticker.C:
				processUnconfirmed(ctx, cfg)
			}
		}
	}()
}

func attemptsKey(id uuid.UUID) string { return "revalidate:attempts:" + id.String() }

func processUnconfirmed(ctx context.Context, cfg RevalidateCronConfig) {
	// A tripped breaker means AFIP is down; skip the tick entirely.
	if cfg.Breaker.State() == infra.CBOpen {
		log.Debug().Msg("revalidation cron: circuit breaker open, skipping tick")
		return
	}

	receipts, err := cfg.Receipts.ListUnconfirmed(ctx, revalidateBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("revalidation cron: listing unconfirmed receipts")
		return
	}
	if len(receipts) == 0 {
		return
	}

	log.Info().Int("count", len(receipts)).Msg("revalidation cron: reconciling unconfirmed receipts")

	for _, receipt := range receipts {
		// The breaker may trip mid-batch.
		if cfg.Breaker.State() == infra.CBOpen {
			log.Debug().Msg("revalidation cron: circuit breaker opened mid-batch, stopping")
			return
		}
		reconcile(ctx, cfg, receipt)
	}
}

func reconcile(ctx context.Context, cfg RevalidateCronConfig, receipt *model.Receipt) {
	var validation *model.ReceiptValidation
	err := cfg.Breaker.Do(func() error {
		var rErr error
		validation, rErr = cfg.Validations.Revalidate(ctx, receipt)
		return rErr
	})

	if err != nil {
		attempts, cntErr := cfg.RDB.Incr(ctx, attemptsKey(receipt.ID)).Result()
		if cntErr != nil {
			log.Error().Err(cntErr).Msg("revalidation cron: attempt counter")
			return
		}
		cfg.RDB.Expire(ctx, attemptsKey(receipt.ID), attemptTTL)

		if attempts >= maxRevalidateAttempts {
			payload := fmt.Sprintf(`{"receipt_ids":["%s"]}`, receipt.ID)
			job := Job{Type: "revalidate", Payload: []byte(payload), Attempts: int(attempts)}
			deadLetter(ctx, cfg.RDB, QueueValidation, job,
				fmt.Sprintf("revalidation failed %d times: %v", attempts, err))
			// Release the number so the sequence can move on; the receipt can
			// be resubmitted manually once AFIP recovers.
			if _, relErr := cfg.Receipts.ReleaseNumbers(ctx, []uuid.UUID{receipt.ID}); relErr != nil {
				log.Error().Err(relErr).Str("receipt_id", receipt.ID.String()).
					Msg("revalidation cron: releasing abandoned number")
			}
			cfg.RDB.Del(ctx, attemptsKey(receipt.ID))
			return
		}

		log.Warn().
			Err(err).
			Str("receipt_id", receipt.ID.String()).
			Int64("attempt", attempts).
			Msg("revalidation cron: attempt failed")
		return
	}

	cfg.RDB.Del(ctx, attemptsKey(receipt.ID))

	if validation != nil {
		log.Info().
			Str("receipt", receipt.FormattedNumber()).
			Str("cae", validation.CAE).
			Msg("revalidation cron: receipt confirmed remotely")
		return
	}

	// AFIP does not know the receipt: the submission never landed. Release
	// the number so the next batch reuses it.
	if _, err := cfg.Receipts.ReleaseNumbers(ctx, []uuid.UUID{receipt.ID}); err != nil {
		log.Error().Err(err).Str("receipt_id", receipt.ID.String()).
			Msg("revalidation cron: releasing unknown receipt's number")
		return
	}
	log.Info().
		Str("receipt_id", receipt.ID.String()).
		Msg("revalidation cron: receipt unknown to AFIP, number released")
}
