package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc executes one task attempt. A returned error triggers the
// handler's retry policy; the final result must be JSON-serializable.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Handler couples a task function to its retry policy. With Exponential set,
// the countdown before attempt n+1 is BaseDelay << n; otherwise BaseDelay is
// used flat.
type Handler struct {
	Fn          HandlerFunc
	MaxRetries  int
	BaseDelay   time.Duration
	Exponential bool
}

// failureResult is what pollers see after retries are exhausted. Failures are
// data, not raised errors.
type failureResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ResultError lets a handler attach a structured result to a failure, so
// partial progress (content generated, email not sent) survives into the
// terminal task record instead of being flattened into an error string.
type ResultError interface {
	error
	FailureResult() any
}

type Worker struct {
	queue        *Queue
	handlers     map[string]Handler
	concurrency  int
	pollInterval time.Duration
	log          *zap.Logger
}

func NewWorker(queue *Queue, concurrency int, log *zap.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Worker{
		queue:        queue,
		handlers:     make(map[string]Handler),
		concurrency:  concurrency,
		pollInterval: 250 * time.Millisecond,
		log:          log,
	}
}

func (w *Worker) Register(kind string, h Handler) {
	w.handlers[kind] = h
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker pool started", zap.Int("concurrency", w.concurrency))

	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		group.Go(func() error {
			return w.loop(ctx)
		})
	}
	err := group.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := w.queue.promoteDue(ctx, time.Now()); err != nil {
			w.log.Error("promote scheduled tasks failed", zap.Error(err))
		}

		env, err := w.queue.pop(ctx)
		if err != nil {
			w.log.Error("pop task failed", zap.Error(err))
		}
		if env == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.pollInterval):
			}
			continue
		}

		w.execute(ctx, *env)
	}
}

func (w *Worker) execute(ctx context.Context, env envelope) {
	handler, ok := w.handlers[env.Kind]
	if !ok {
		w.log.Error("no handler for task kind",
			zap.String("task_id", env.ID),
			zap.String("kind", env.Kind),
		)
		w.fail(ctx, env, fmt.Sprintf("no handler registered for kind %q", env.Kind))
		return
	}

	if err := w.queue.setStatus(ctx, Status{TaskID: env.ID, State: StateStarted, Retries: env.Retries}); err != nil {
		w.log.Error("status update failed", zap.Error(err))
	}

	result, err := func() (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		return handler.Fn(ctx, env.Payload)
	}()

	if err == nil {
		raw, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			w.fail(ctx, env, fmt.Sprintf("result not serializable: %v", marshalErr))
			return
		}
		if err := w.queue.setStatus(ctx, Status{
			TaskID:  env.ID,
			State:   StateSuccess,
			Result:  raw,
			Retries: env.Retries,
		}); err != nil {
			w.log.Error("status update failed", zap.Error(err))
		}
		w.log.Info("task succeeded",
			zap.String("task_id", env.ID),
			zap.String("kind", env.Kind),
			zap.Int("retries", env.Retries),
		)
		return
	}

	if env.Retries < handler.MaxRetries {
		countdown := handler.BaseDelay
		if handler.Exponential {
			countdown = handler.BaseDelay << env.Retries
		}
		env.Retries++

		w.log.Warn("task retrying",
			zap.String("task_id", env.ID),
			zap.String("kind", env.Kind),
			zap.Int("retry", env.Retries),
			zap.Duration("countdown", countdown),
			zap.Error(err),
		)

		if statusErr := w.queue.setStatus(ctx, Status{
			TaskID:  env.ID,
			State:   StateRetry,
			Error:   err.Error(),
			Retries: env.Retries,
		}); statusErr != nil {
			w.log.Error("status update failed", zap.Error(statusErr))
		}
		if schedErr := w.queue.scheduleRetry(ctx, env, time.Now().Add(countdown)); schedErr != nil {
			w.log.Error("retry scheduling failed", zap.Error(schedErr))
			w.failErr(ctx, env, err)
		}
		return
	}

	w.log.Error("task failed permanently",
		zap.String("task_id", env.ID),
		zap.String("kind", env.Kind),
		zap.Int("retries", env.Retries),
		zap.Error(err),
	)
	w.failErr(ctx, env, err)
}

// failErr records a terminal failure, preferring the handler's structured
// result when the error carries one.
func (w *Worker) failErr(ctx context.Context, env envelope, err error) {
	var re ResultError
	if errors.As(err, &re) {
		w.failWith(ctx, env, err.Error(), re.FailureResult())
		return
	}
	w.fail(ctx, env, err.Error())
}

func (w *Worker) fail(ctx context.Context, env envelope, msg string) {
	w.failWith(ctx, env, msg, failureResult{Success: false, Error: msg})
}

func (w *Worker) failWith(ctx context.Context, env envelope, msg string, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		raw, _ = json.Marshal(failureResult{Success: false, Error: msg})
	}
	if err := w.queue.setStatus(ctx, Status{
		TaskID:  env.ID,
		State:   StateFailure,
		Result:  raw,
		Error:   msg,
		Retries: env.Retries,
	}); err != nil {
		w.log.Error("status update failed", zap.Error(err))
	}
}
