package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const (
	failuresKey     = "auth:sync:failed"
	defaultCapacity = 1000
)

// FailureLog keeps the most recent failed sync jobs in a capped Redis list,
// newest first, for operator reconciliation.
type FailureLog struct {
	client   redis.Cmdable
	capacity int64
}

// NewFailureLog wraps client. Non-positive capacity selects defaultCapacity.
func NewFailureLog(client redis.Cmdable, capacity int64) *FailureLog {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &FailureLog{client: client, capacity: capacity}
}

func (l *FailureLog) Record(ctx context.Context, failure domain.SyncFailure) error {
	payload, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("encode sync failure: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, failuresKey, payload)
	pipe.LTrim(ctx, failuresKey, 0, l.capacity-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record sync failure: %w", err)
	}
	return nil
}

// List returns up to limit failures, newest first.
func (l *FailureLog) List(ctx context.Context, limit int64) ([]domain.SyncFailure, error) {
	if limit <= 0 || limit > l.capacity {
		limit = l.capacity
	}
	raw, err := l.client.LRange(ctx, failuresKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sync failures: %w", err)
	}

	out := make([]domain.SyncFailure, 0, len(raw))
	for _, item := range raw {
		var f domain.SyncFailure
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// Ping reports whether Redis is reachable.
func (l *FailureLog) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
