package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultProbeInterval is used when NewHealthProbe gets a non-positive interval.
const DefaultProbeInterval = 10 * time.Second

type Pinger interface {
	PingContext(ctx context.Context) error
}

type StatusReporter interface {
	SetStorageUp(up bool)
}

// HealthProbe pings storage on a ticker and pushes the result to every reporter.
type HealthProbe struct {
	pinger    Pinger
	reporters []StatusReporter
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

func NewHealthProbe(logger *zap.Logger, pinger Pinger, interval time.Duration, reporters ...StatusReporter) *HealthProbe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	return &HealthProbe{
		pinger:    pinger,
		reporters: reporters,
		interval:  interval,
		timeout:   3 * time.Second,
		logger:    logger,
	}
}

// Run probes once immediately and then on every tick until ctx is done.
func (p *HealthProbe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last := p.probe(ctx)
	p.logger.Info("Storage health probe started", zap.Bool("up", last))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			up := p.probe(ctx)
			if up != last {
				p.logger.Warn("Storage health changed", zap.Bool("up", up))
			}
			last = up
		}
	}
}

// Start runs the probe in a goroutine. The returned channel is closed once
// Run has returned, after which storage is no longer touched.
func (p *HealthProbe) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return done
}

func (p *HealthProbe) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.pinger.PingContext(ctx)
	if err != nil {
		p.logger.Debug("Storage ping failed", zap.Error(err))
	}

	up := err == nil
	for _, r := range p.reporters {
		r.SetStorageUp(up)
	}
	return up
}
