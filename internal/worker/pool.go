package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueValidation = "jobs:validation"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	// Attempts counts deliveries of this envelope, including the current
	// one. Re-enqueued jobs carry the incremented counter.
	Attempts int `json:"attempts"`
}

// Handler processes one job payload. Returning an error requeues or
// dead-letters the job depending on the attempt count.
type Handler interface {
	Process(ctx context.Context, job Job) error
}

// Dispatcher enqueues async jobs into Redis lists. The worker pool dequeues
// them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueValidation pushes a receipt validation job to Redis.
func (d *Dispatcher) EnqueueValidation(ctx context.Context, payload ValidationJobPayload) error {
	return d.enqueue(ctx, QueueValidation, "validation", payload, 1)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}, attempts int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data, Attempts: attempts}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// requeue pushes a job back with its attempt counter bumped.
func (d *Dispatcher) requeue(ctx context.Context, queue string, job Job) error {
	job.Attempts++
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes the job queues with a fixed set of goroutines. Each worker
// blocks on BRPOP, so an idle pool costs nothing.
type Pool struct {
	rdb        *redis.Client
	dispatcher *Dispatcher
	handlers   map[string]Handler
	// maxAttempts bounds redeliveries before a job lands in the DLQ.
	maxAttempts int
}

func NewPool(rdb *redis.Client, dispatcher *Dispatcher) *Pool {
	return &Pool{
		rdb:         rdb,
		dispatcher:  dispatcher,
		handlers:    make(map[string]Handler),
		maxAttempts: 3,
	}
}

// Register binds a job type to its handler. Not safe to call after Start.
func (p *Pool) Register(jobType string, h Handler) {
	p.handlers[jobType] = h
}

// Start launches numWorkers consumer goroutines. They stop when ctx is
// cancelled.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Blocking pop, bounded so ctx cancellation is noticed.
			result, err := p.rdb.BRPop(ctx, 5*time.Second, QueueValidation).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("discarding unreadable job")
		return
	}
	if job.Attempts < 1 {
		job.Attempts = 1
	}

	handler, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Msg("no handler for job type")
		deadLetter(ctx, p.rdb, queue, job, "no handler registered")
		return
	}

	err := handler.Process(ctx, job)
	if err == nil {
		return
	}

	if job.Attempts >= p.maxAttempts {
		deadLetter(ctx, p.rdb, queue, job, err.Error())
		return
	}

	log.Warn().
		Str("type", job.Type).
		Int("attempt", job.Attempts).
		Err(err).
		Msg("job failed, requeueing")
	if reqErr := p.dispatcher.requeue(ctx, queue, job); reqErr != nil {
		log.Error().Err(reqErr).Str("type", job.Type).Msg("requeue failed, dead-lettering")
		deadLetter(ctx, p.rdb, queue, job, err.Error())
	}
}
