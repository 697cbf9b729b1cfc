package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultPollInterval = 60 * time.Second

// DueEvaluator is one scheduler's evaluation entry point.
type DueEvaluator interface {
	EvaluateDue(ctx context.Context, now time.Time) error
}

// Poller drives both schedulers with a single recurring timer. All due-time
// decisions compare persisted trigger times against wall-clock now, so a
// restarted process catches up on its first tick; no in-memory timer is
// load-bearing.
type Poller struct {
	thresholds DueEvaluator
	reminders  DueEvaluator
	logger     *zap.Logger
	interval   time.Duration
	now        func() time.Time
}

func NewPoller(
	thresholds DueEvaluator,
	reminders DueEvaluator,
	interval time.Duration,
	logger *zap.Logger,
) (*Poller, error) {
	if thresholds == nil {
		return nil, fmt.Errorf("threshold scheduler is required")
	}
	if reminders == nil {
		return nil, fmt.Errorf("reminder scheduler is required")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Poller{
		thresholds: thresholds,
		reminders:  reminders,
		logger:     logger,
		interval:   interval,
		now:        time.Now,
	}, nil
}

// Start runs evaluation passes until context cancellation. An immediate
// pass precedes the ticker so already-due work does not wait a full
// interval after process start.
func (p *Poller) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p.runPass(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			p.runPass(ctx)
		}
	}
}

// runPass evaluates thresholds then reminders, sequentially. A failure in
// either is logged and never stops subsequent ticks.
func (p *Poller) runPass(ctx context.Context) {
	now := p.now().UTC()

	if err := p.thresholds.EvaluateDue(ctx, now); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("threshold evaluation pass failed", zap.Error(err))
	}

	if err := p.reminders.EvaluateDue(ctx, now); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("reminder evaluation pass failed", zap.Error(err))
	}
}
