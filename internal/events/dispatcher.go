package events

import (
	"context"
	"time"

	"memberhub-backend/internal/logger"
	"memberhub-backend/internal/repository"
)

// Dispatcher drains the outbox to registered subscribers. Each subscriber
// has its own durable cursor; the cursor only advances past a row once the
// handler succeeds, so a failing subscriber blocks its own stream (and
// only its own) until the row goes through.
type Dispatcher struct {
	outbox       repository.OutboxRepository
	subscribers  []Subscriber
	pollInterval time.Duration
	batchSize    int32
	baseBackoff  time.Duration
	maxAttempts  int
}

type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int32
	BaseBackoff  time.Duration
	MaxAttempts  int
}

func NewDispatcher(outbox repository.OutboxRepository, cfg DispatcherConfig) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Dispatcher{
		outbox:       outbox,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		baseBackoff:  cfg.BaseBackoff,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// Register adds a subscriber. Registration happens once at process
// startup, before Run; there is no ambient global listener list.
func (d *Dispatcher) Register(sub Subscriber) {
	d.subscribers = append(d.subscribers, sub)
	logger.Info("Outbox subscriber registered", "subscriber", sub.Name())
}

// Run polls the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.DrainOnce(ctx)
		}
	}
}

// DrainOnce advances every subscriber as far as it will go right now.
// Exported so the cronjob binary can drain on demand.
func (d *Dispatcher) DrainOnce(ctx context.Context) {
	for _, sub := range d.subscribers {
		if err := d.drainSubscriber(ctx, sub); err != nil {
			logger.Error("Outbox drain stopped", "subscriber", sub.Name(), "error", err)
		}
	}
}

func (d *Dispatcher) drainSubscriber(ctx context.Context, sub Subscriber) error {
	for {
		cursor, err := d.outbox.GetCursor(ctx, sub.Name())
		if err != nil {
			return err
		}
		rows, err := d.outbox.ListAfter(ctx, cursor, d.batchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			if err := d.deliver(ctx, sub, row); err != nil {
				// cursor stays put; the row is retried next drain
				return err
			}
			if err := d.outbox.SetCursor(ctx, sub.Name(), row.RowID); err != nil {
				return err
			}
		}
		if int32(len(rows)) < d.batchSize {
			return nil
		}
	}
}

// deliver invokes the handler with bounded exponential backoff. A handler
// that still fails after maxAttempts leaves the cursor before the row.
func (d *Dispatcher) deliver(ctx context.Context, sub Subscriber, row repository.OutboxRow) error {
	var err error
	backoff := d.baseBackoff
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err = sub.Handle(ctx, row.Event)
		if err == nil {
			return nil
		}
		logger.Warn("Subscriber handler failed",
			"subscriber", sub.Name(),
			"event_id", row.Event.ID,
			"event_type", row.Event.Type,
			"attempt", attempt,
			"error", err)
		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
