package service

import (
	"context"
	"log"
	"time"

	"passgate/internal/passgate/store"
)

// ExpirySweeper periodically flips stale active credentials past their
// expiry to the expired state.  It is purely an optimization for admin
// queries: lazy expiry at validation time is authoritative whether or not
// the sweeper runs.
//
// An interval of 0 disables sweeping entirely.
type ExpirySweeper struct {
	store    store.CredentialStore
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// SweeperConfig holds the parameters for NewExpirySweeper.
type SweeperConfig struct {
	// IntervalHours is how often the sweep runs.  0 disables the sweeper.
	IntervalHours int
}

// NewExpirySweeper creates a sweeper but does not start it.
func NewExpirySweeper(s store.CredentialStore, cfg SweeperConfig, logger *log.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		store:    s,
		interval: time.Duration(cfg.IntervalHours) * time.Hour,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop: an immediate sweep, then one per
// interval.  Exits when ctx is cancelled or Stop is called.
func (p *ExpirySweeper) Start(ctx context.Context) {
	if p.interval <= 0 {
		p.logger.Printf("expiry sweeper disabled (interval=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Printf("expiry sweeper started (interval=%dh)", int(p.interval.Hours()))
}

// Stop signals the sweeper to exit and waits for it to finish.
func (p *ExpirySweeper) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *ExpirySweeper) loop(ctx context.Context) {
	defer close(p.done)

	p.sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *ExpirySweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()
	flipped, err := p.store.MarkExpiredBefore(ctx, now)
	if err != nil {
		p.logger.Printf("expiry sweep error: %v", err)
		return
	}
	if flipped > 0 {
		p.logger.Printf("expiry sweep: marked %d credentials expired as of %s",
			flipped, now.Format(time.RFC3339))
	}
}
