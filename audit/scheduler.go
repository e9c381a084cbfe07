package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"

	"github.com/goliatone/go-ingest/core"
)

const JobIDReconcile = "ingest.audit.reconcile"

// RetryPolicy bounds queue retry behavior for reconcile runs.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize clamps nack options for a given attempt so a failing sweep
// cannot requeue forever.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ExecutionMessage builds the enqueue payload for the sweep covering the
// window that starts at windowStart. The idempotency key pins one run per
// window so overlapping schedulers collapse to a single execution.
func ExecutionMessage(windowStart time.Time, window time.Duration) *job.ExecutionMessage {
	start := windowStart.UTC()
	return &job.ExecutionMessage{
		JobID: JobIDReconcile,
		Parameters: map[string]any{
			"window_start":   start.Format(time.RFC3339),
			"window_seconds": int64(window / time.Second),
		},
		IdempotencyKey: fmt.Sprintf("%s::%d", JobIDReconcile, start.Unix()),
	}
}

// Scheduler enqueues reconcile runs on window boundaries.
type Scheduler struct {
	enqueuer queue.Enqueuer
	window   time.Duration
	clock    func() time.Time
}

func NewScheduler(enqueuer queue.Enqueuer, window time.Duration) (*Scheduler, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("audit: enqueuer is required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Scheduler{
		enqueuer: enqueuer,
		window:   window,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// EnqueueCurrent schedules the sweep for the window containing now. Calling
// it more than once inside the same window enqueues the same idempotency
// key, which the queue deduplicates.
func (s *Scheduler) EnqueueCurrent(ctx context.Context) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("audit: scheduler is not configured")
	}
	windowStart := s.clock().UTC().Truncate(s.window)
	return s.enqueuer.Enqueue(ctx, ExecutionMessage(windowStart, s.window))
}

// Handler runs a dequeued reconcile job against the reconciler and settles
// the delivery. Failed sweeps nack with the bounded retry policy.
type Handler struct {
	reconciler *Reconciler
	policy     RetryPolicy
}

func NewHandler(reconciler *Reconciler, policy RetryPolicy) (*Handler, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("audit: reconciler is required")
	}
	return &Handler{reconciler: reconciler, policy: policy}, nil
}

func (h *Handler) Handle(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if h == nil || h.reconciler == nil {
		return fmt.Errorf("audit: handler is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("audit: delivery is required")
	}

	if _, err := h.reconciler.Run(ctx); err != nil {
		nack := h.policy.Normalize(queue.NackOptions{
			Requeue: true,
			Reason:  err.Error(),
		}, attempt)
		if nackErr := delivery.Nack(ctx, nack); nackErr != nil {
			return fmt.Errorf("audit: nack delivery: %w", nackErr)
		}
		return err
	}
	return delivery.Ack(ctx)
}

// LifecycleHook surfaces reconcile job lifecycle transitions through the
// ingest observer so worker activity shows up next to pipeline logs.
type LifecycleHook struct {
	observer core.Observer
}

func NewLifecycleHook(logger core.Logger, metrics core.MetricsRecorder) *LifecycleHook {
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &LifecycleHook{observer: core.Observer{Logger: logger, Metrics: metrics}}
}

func (h *LifecycleHook) OnStart(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observer.LogInfo(ctx, "reconcile job started", hookFields(event))
}

func (h *LifecycleHook) OnSuccess(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observer.Observe(ctx, event.StartedAt, "audit_job", nil, hookFields(event))
}

func (h *LifecycleHook) OnFailure(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	fields := hookFields(event)
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	h.observer.LogError(ctx, "reconcile job failed", fields)
}

func (h *LifecycleHook) OnRetry(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	fields := hookFields(event)
	fields["delay_ms"] = event.Delay.Milliseconds()
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	h.observer.LogInfo(ctx, "reconcile job retrying", fields)
}

func hookFields(event worker.Event) map[string]any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := map[string]any{
		"attempt": event.Attempt,
	}
	if message != nil {
		fields["job_id"] = message.JobID
		fields["idempotency_key"] = message.IdempotencyKey
	}
	return fields
}

var _ worker.Hook = (*LifecycleHook)(nil)
