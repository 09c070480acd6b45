package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces the dead letter list of each source queue, so
// "jobs:validation" dead-letters into "dlq:jobs:validation".
const DLQPrefix = "dlq:"

// DLQEntry is a job envelope that exhausted its retries, frozen with the
// context an operator needs to resubmit or discard it.
type DLQEntry struct {
	Job
	OriginalQueue string    `json:"original_queue"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failed_at"`
}

// deadLetter moves a job envelope to the queue's DLQ. Failures here are
// logged only; a broken Redis leaves nowhere better to put the job anyway.
func deadLetter(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	entry := DLQEntry{
		Job:           job,
		OriginalQueue: queue,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal failed")
		return
	}
	if err := rdb.LPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: push failed")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("job moved to dead letter queue")
}

// DLQLength returns the number of entries in a queue's DLQ.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
