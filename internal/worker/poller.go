// Package worker runs the cooperative scheduler: a loop that polls the
// engine's pure "is work due" query and, when something is due, submits the
// idempotent "perform work" call. The engine revalidates every guard itself,
// so several pollers (or retries of one) cannot cause a duplicate draw.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/luckypool/lottery-engine/internal/engine"
	"github.com/luckypool/lottery-engine/pkg/common/logger"
	"github.com/luckypool/lottery-engine/pkg/retry"
)

type DrawPoller struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	engine   *engine.Engine
	interval time.Duration
}

func NewDrawPoller(ctx context.Context, eng *engine.Engine, interval time.Duration) *DrawPoller {
	ctx, cancel := context.WithCancel(ctx)
	return &DrawPoller{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With(slog.String("component", "draw-poller")),
		engine:   eng,
		interval: interval,
	}
}

func (p *DrawPoller) Start() {
	p.logger.Info("Starting draw poller", "interval", p.interval)
	go p.run()
}

func (p *DrawPoller) Stop() {
	p.cancel()
	p.logger.Info("Draw poller stopped")
}

func (p *DrawPoller) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	const retryInterval = 2 * time.Second

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Info("Context done, stopping poller loop")
			return
		case <-ticker.C:
			if err := retry.Exponential(p.poll, retry.ExponentialConfig{
				InitialInterval: retryInterval,
				MaxElapsedTime:  p.interval * 4,
				OnRetry: func(err error, next time.Duration) {
					p.logger.Debug("Retrying poll", "err", err, "next_retry_in", next)
				},
			}); err != nil {
				p.logger.Error("Poll error", "err", err)
			}
		}
	}
}

func (p *DrawPoller) poll() error {
	work, err := p.engine.DueWork()
	if err != nil {
		return err
	}
	if work.Kind == engine.WorkNone {
		return nil
	}

	p.logger.Info("Work due", "kind", work.Kind, "game_day", work.GameDay)
	performed, err := p.engine.PerformWork()
	if err != nil {
		return err
	}
	if performed == engine.WorkNone {
		// Another trigger won the race; nothing happened.
		p.logger.Debug("Work no longer due")
	}
	return nil
}
