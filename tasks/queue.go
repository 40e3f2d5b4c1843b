// Package tasks is the background work layer: a redis-backed queue, a worker
// pool with retry and exponential backoff, and the newsletter task
// definitions. Task state is polled by id and expires an hour after the last
// update.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	Error = errs.Class("tasks")

	// ErrNotFound is returned for unknown or expired task ids.
	ErrNotFound = errs.New("task not found")
)

const (
	readyKey     = "newsforge:tasks:ready"
	scheduledKey = "newsforge:tasks:scheduled"
	statusPrefix = "newsforge:tasks:status:"

	resultExpiry = time.Hour
)

// Task states. RETRY is transient; SUCCESS and FAILURE are terminal.
const (
	StatePending = "PENDING"
	StateStarted = "STARTED"
	StateRetry   = "RETRY"
	StateSuccess = "SUCCESS"
	StateFailure = "FAILURE"
)

// envelope is what travels through redis. Retries counts completed attempts.
type envelope struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	Retries int             `json:"retries"`
}

// Status is the pollable task record.
type Status struct {
	TaskID    string          `json:"task_id"`
	State     string          `json:"state"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Retries   int             `json:"retries"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Queue struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewQueue(rdb *redis.Client, log *zap.Logger) *Queue {
	return &Queue{rdb: rdb, log: log}
}

// Enqueue registers a PENDING status record and pushes the task onto the
// ready list. Returns the task id for polling.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", Error.Wrap(err)
	}

	env := envelope{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: raw,
	}

	if err := q.setStatus(ctx, Status{TaskID: env.ID, State: StatePending}); err != nil {
		return "", err
	}
	if err := q.push(ctx, env); err != nil {
		return "", err
	}

	q.log.Info("task enqueued",
		zap.String("task_id", env.ID),
		zap.String("kind", kind),
	)
	return env.ID, nil
}

// Status looks up a task record by id.
func (q *Queue) Status(ctx context.Context, taskID string) (*Status, error) {
	raw, err := q.rdb.Get(ctx, statusPrefix+taskID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, Error.Wrap(err)
	}
	return &st, nil
}

func (q *Queue) push(ctx context.Context, env envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(q.rdb.LPush(ctx, readyKey, raw).Err())
}

func (q *Queue) pop(ctx context.Context) (*envelope, error) {
	raw, err := q.rdb.RPop(ctx, readyKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Error.Wrap(err)
	}
	return &env, nil
}

// scheduleRetry parks the envelope in the scheduled set until readyAt.
func (q *Queue) scheduleRetry(ctx context.Context, env envelope, readyAt time.Time) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(q.rdb.ZAdd(ctx, scheduledKey, redis.Z{
		Score:  float64(readyAt.UnixNano()) / float64(time.Second),
		Member: string(raw),
	}).Err())
}

// promoteDue moves scheduled tasks whose time has come back onto the ready
// list.
func (q *Queue) promoteDue(ctx context.Context, now time.Time) error {
	max := fmt.Sprintf("%f", float64(now.UnixNano())/float64(time.Second))
	members, err := q.rdb.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return Error.Wrap(err)
	}

	for _, member := range members {
		removed, err := q.rdb.ZRem(ctx, scheduledKey, member).Result()
		if err != nil {
			return Error.Wrap(err)
		}
		if removed == 0 {
			continue // another worker promoted it first
		}
		if err := q.rdb.LPush(ctx, readyKey, member).Err(); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}

func (q *Queue) setStatus(ctx context.Context, st Status) error {
	st.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(q.rdb.Set(ctx, statusPrefix+st.TaskID, raw, resultExpiry).Err())
}
