package services

import (
	"context"
	"time"

	"github.com/medicapp/backend/internal/infrastructure/observability"
)

// Sweeper is anything that can remove expired sessions
type Sweeper interface {
	SweepExpired(ctx context.Context, trigger string) (int, error)
}

// SessionSweeper periodically removes expired chat sessions
type SessionSweeper struct {
	sweeper  Sweeper
	interval time.Duration
}

// NewSessionSweeper creates a sweeper that runs every interval
func NewSessionSweeper(sweeper Sweeper, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionSweeper{sweeper: sweeper, interval: interval}
}

// Run sweeps on every tick until ctx is cancelled
func (s *SessionSweeper) Run(ctx context.Context) {
	logger := observability.GetLogger()
	logger.Info().Dur("interval", s.interval).Msg("session sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("session sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.sweeper.SweepExpired(ctx, SweepTriggerTicker); err != nil {
				logger.Warn().Err(err).Msg("scheduled session sweep failed")
			}
		}
	}
}

// Start runs the sweeper in a goroutine and returns a function that stops it
// and waits for it to exit
func (s *SessionSweeper) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
