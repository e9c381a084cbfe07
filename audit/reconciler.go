package audit

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-ingest/core"
)

const (
	DefaultWindow   = 24 * time.Hour
	DefaultPageSize = 200
)

// Summary is the outcome of one reconcile sweep over the stored window.
type Summary struct {
	WindowFrom time.Time
	WindowTo   time.Time

	Scanned  int
	Inbound  int
	Outbound int
	ByKind   map[core.MessageKind]int

	// Integrity gaps: rows that landed without the fields the ingest path
	// always writes. Non-zero values point at writes that bypassed it.
	MissingSenderHash int
	MissingRawPayload int
}

type Reconciler struct {
	store    core.MessageStore
	observer core.Observer
	window   time.Duration
	pageSize int
	clock    func() time.Time
}

type Option func(*Reconciler)

func WithLogger(logger core.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.observer.Logger = logger
		}
	}
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(r *Reconciler) {
		if metrics != nil {
			r.observer.Metrics = metrics
		}
	}
}

func WithWindow(window time.Duration) Option {
	return func(r *Reconciler) {
		if window > 0 {
			r.window = window
		}
	}
}

func WithPageSize(size int) Option {
	return func(r *Reconciler) {
		if size > 0 {
			r.pageSize = size
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewReconciler(store core.MessageStore, options ...Option) (*Reconciler, error) {
	if store == nil {
		return nil, fmt.Errorf("audit: message store is required")
	}
	reconciler := &Reconciler{
		store: store,
		observer: core.Observer{
			Logger:  glog.Ensure(nil),
			Metrics: core.NopMetricsRecorder{},
		},
		window:   DefaultWindow,
		pageSize: DefaultPageSize,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		option(reconciler)
	}
	return reconciler, nil
}

// Run sweeps the configured window page by page and reports what it found.
// It never mutates stored rows.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	if r == nil || r.store == nil {
		return Summary{}, fmt.Errorf("audit: reconciler is not configured")
	}
	startedAt := time.Now()

	now := r.clock().UTC()
	from := now.Add(-r.window)
	summary := Summary{
		WindowFrom: from,
		WindowTo:   now,
		ByKind:     map[core.MessageKind]int{},
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("audit: sweep interrupted: %w", err)
		}
		page, err := r.store.List(ctx, core.MessageFilter{
			OccurredFrom: &from,
			OccurredTo:   &now,
			Limit:        r.pageSize,
			Offset:       offset,
		})
		if err != nil {
			r.observer.LogError(ctx, "reconcile sweep failed", map[string]any{
				"offset": offset,
				"error":  err.Error(),
			})
			return summary, fmt.Errorf("audit: list messages: %w", err)
		}
		for _, msg := range page {
			r.tally(&summary, msg)
		}
		if len(page) < r.pageSize {
			break
		}
		offset += len(page)
	}

	r.observer.Observe(ctx, startedAt, "audit_reconcile", nil, map[string]any{
		"scanned":             summary.Scanned,
		"inbound":             summary.Inbound,
		"outbound":            summary.Outbound,
		"missing_sender_hash": summary.MissingSenderHash,
		"missing_raw_payload": summary.MissingRawPayload,
	})
	return summary, nil
}

func (r *Reconciler) tally(summary *Summary, msg core.StoredMessage) {
	summary.Scanned++
	switch msg.Direction {
	case core.DirectionInbound:
		summary.Inbound++
	case core.DirectionOutbound:
		summary.Outbound++
	}
	if msg.Kind != "" {
		summary.ByKind[msg.Kind]++
	}
	if msg.SenderHash == "" {
		summary.MissingSenderHash++
	}
	if len(msg.Raw) == 0 {
		summary.MissingRawPayload++
	}
}
