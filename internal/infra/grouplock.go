package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrGroupLocked is returned when another process is already validating the
// same receipt sequence.
var ErrGroupLocked = errors.New("receipt group is being validated by another process")

// GroupLock serializes validation per (point of sale, receipt type) sequence
// across processes. Number assignment uses compare-and-set anyway, so the
// lock is an optimization that avoids burning sequence numbers when several
// workers race on the same group, not a correctness requirement.
type GroupLock struct {
	rdb   *redis.Client
	lease time.Duration
}

// NewGroupLock builds a lock manager with the given lease duration. The
// lease bounds how long a crashed holder can block a sequence.
func NewGroupLock(rdb *redis.Client, lease time.Duration) *GroupLock {
	if lease <= 0 {
		lease = 2 * time.Minute
	}
	return &GroupLock{rdb: rdb, lease: lease}
}

func groupKey(posID, typeID uuid.UUID) string {
	return fmt.Sprintf("lock:receipt-group:%s:%s", posID, typeID)
}

// Acquire takes the lock for one sequence, returning a release function. The
// token guard makes release a no-op if the lease already expired and someone
// else holds the lock.
func (l *GroupLock) Acquire(ctx context.Context, posID, typeID uuid.UUID) (func(), error) {
	key := groupKey(posID, typeID)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.lease).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGroupLocked
	}

	release := func() {
		// Delete only our own token.
		const script = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
		l.rdb.Eval(context.Background(), script, []string{key}, token)
	}
	return release, nil
}
