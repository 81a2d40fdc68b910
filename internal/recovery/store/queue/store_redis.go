package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"probo/internal/domain"
	id "probo/pkg/domain"
	"probo/pkg/platform/sentinel"
)

// Redis key layout. The pending set is a ZSET scored by ReadyAt so delayed
// re-enqueues order themselves; the processing hash holds in-flight payloads
// keyed by coin ID so tasks survive a worker crash mid-attempt.
const (
	pendingKey    = "recovery:pending"
	processingKey = "recovery:processing"
	deadLetterKey = "recovery:dead"
)

// RedisQueue is the restart-safe recovery task queue. This is the
// production-recommended implementation: queued and in-flight tasks survive
// process restart.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue constructs a redis-backed recovery queue.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *domain.RecoveryTask) error {
	payload, err := marshalTask(task)
	if err != nil {
		return err
	}
	err = q.client.ZAdd(ctx, pendingKey, redis.Z{
		Score:  float64(task.ReadyAt.Unix()),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: enqueue: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*domain.RecoveryTask, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	members, err := q.client.ZRangeByScore(ctx, pendingKey, &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: dequeue range: %v", sentinel.ErrUnavailable, err)
	}
	if len(members) == 0 {
		return nil, sentinel.ErrNotFound
	}

	payload := members[0]
	removed, err := q.client.ZRem(ctx, pendingKey, payload).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: dequeue remove: %v", sentinel.ErrUnavailable, err)
	}
	if removed == 0 {
		// Another consumer won the task; treat as empty and let the caller
		// retry on its next tick.
		return nil, sentinel.ErrNotFound
	}

	task, err := unmarshalTask([]byte(payload))
	if err != nil {
		return nil, err
	}
	if err := q.client.HSet(ctx, processingKey, task.CoinID.String(), payload).Err(); err != nil {
		return nil, fmt.Errorf("%w: mark in-flight: %v", sentinel.ErrUnavailable, err)
	}
	return task, nil
}

func (q *RedisQueue) Complete(ctx context.Context, task *domain.RecoveryTask) error {
	if err := q.client.HDel(ctx, processingKey, task.CoinID.String()).Err(); err != nil {
		return fmt.Errorf("%w: complete: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) Requeue(ctx context.Context, task *domain.RecoveryTask, delay time.Duration) error {
	task.ReadyAt = time.Now().Add(delay)
	payload, err := marshalTask(task)
	if err != nil {
		return err
	}
	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, processingKey, task.CoinID.String())
	pipe.ZAdd(ctx, pendingKey, redis.Z{
		Score:  float64(task.ReadyAt.Unix()),
		Member: payload,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: requeue: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) Remove(ctx context.Context, coinID id.CoinID) error {
	members, err := q.client.ZRange(ctx, pendingKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("%w: remove scan: %v", sentinel.ErrUnavailable, err)
	}
	for _, payload := range members {
		task, err := unmarshalTask([]byte(payload))
		if err != nil {
			continue
		}
		if task.CoinID == coinID {
			if err := q.client.ZRem(ctx, pendingKey, payload).Err(); err != nil {
				return fmt.Errorf("%w: remove: %v", sentinel.ErrUnavailable, err)
			}
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (q *RedisQueue) DeadLetter(ctx context.Context, task *domain.RecoveryTask) error {
	payload, err := marshalTask(task)
	if err != nil {
		return err
	}
	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, processingKey, task.CoinID.String())
	pipe.RPush(ctx, deadLetterKey, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: dead letter: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.ZCard(ctx, pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: len: %v", sentinel.ErrUnavailable, err)
	}
	return int(n), nil
}

func (q *RedisQueue) DeadLetterLen(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, deadLetterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: dead letter len: %v", sentinel.ErrUnavailable, err)
	}
	return int(n), nil
}

// RecoverInFlight moves tasks stranded in the processing hash by a previous
// process back onto the pending set. Called once at engine start.
func (q *RedisQueue) RecoverInFlight(ctx context.Context) (int, error) {
	entries, err := q.client.HGetAll(ctx, processingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: recover in-flight: %v", sentinel.ErrUnavailable, err)
	}
	recovered := 0
	for coinID, payload := range entries {
		pipe := q.client.TxPipeline()
		pipe.HDel(ctx, processingKey, coinID)
		pipe.ZAdd(ctx, pendingKey, redis.Z{
			Score:  float64(time.Now().Unix()),
			Member: payload,
		})
		if _, err := pipe.Exec(ctx); err != nil {
			return recovered, fmt.Errorf("%w: recover in-flight: %v", sentinel.ErrUnavailable, err)
		}
		recovered++
	}
	return recovered, nil
}

func marshalTask(task *domain.RecoveryTask) ([]byte, error) {
	task.EncodeValue()
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return payload, nil
}

func unmarshalTask(payload []byte) (*domain.RecoveryTask, error) {
	var task domain.RecoveryTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	task.DecodeValue()
	return &task, nil
}
