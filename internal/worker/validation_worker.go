package worker

// Processes asynchronous receipt validation jobs from QueueValidation. The
// group lock keeps concurrent workers off the same receipt sequence so they
// do not burn numbers racing each other; number claims stay compare-and-set
// underneath regardless.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"afipws/internal/infra"
	"afipws/internal/repository"
	"afipws/internal/service"
)

// ValidationJobPayload identifies the receipts one job validates. The batch
// must be groupable: one point of sale, one receipt type.
type ValidationJobPayload struct {
	ReceiptIDs []string `json:"receipt_ids"`
}

type ValidationWorker struct {
	receipts    repository.ReceiptRepository
	validations service.ValidationService
	locks       *infra.GroupLock
	breaker     *infra.CircuitBreaker
}

func NewValidationWorker(
	receipts repository.ReceiptRepository,
	validations service.ValidationService,
	locks *infra.GroupLock,
	breaker *infra.CircuitBreaker,
) *ValidationWorker {
	return &ValidationWorker{
		receipts:    receipts,
		validations: validations,
		locks:       locks,
		breaker:     breaker,
	}
}

func (w *ValidationWorker) Process(ctx context.Context, job Job) error {
	var payload ValidationJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		// Malformed payloads never succeed on retry; report nothing and let
		// the envelope die here.
		log.Error().Err(err).Msg("validation worker: invalid payload, dropping")
		return nil
	}

	ids := make([]uuid.UUID, 0, len(payload.ReceiptIDs))
	for _, raw := range payload.ReceiptIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Error().Str("receipt_id", raw).Msg("validation worker: invalid receipt id, dropping job")
			return nil
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	// The first receipt pins the sequence the whole batch must belong to.
	first, err := w.receipts.FindByID(ctx, ids[0])
	if err != nil {
		return fmt.Errorf("load receipt %s: %w", ids[0], err)
	}

	release, err := w.locks.Acquire(ctx, first.PointOfSalesID, first.ReceiptTypeID)
	if err != nil {
		if errors.Is(err, infra.ErrGroupLocked) {
			// Another worker owns the sequence; retry later.
			return err
		}
		return fmt.Errorf("acquire group lock: %w", err)
	}
	defer release()

	var rejections []string
	err = w.breaker.Do(func() error {
		var vErr error
		rejections, vErr = w.validations.Validate(ctx, ids, nil)
		return vErr
	})
	if err != nil {
		return fmt.Errorf("validate batch: %w", err)
	}

	if len(rejections) > 0 {
		// Rejections are a final answer, not a failure: record and move on.
		log.Warn().
			Strs("rejections", rejections).
			Int("batch", len(ids)).
			Msg("validation worker: batch had rejections")
	}
	return nil
}
