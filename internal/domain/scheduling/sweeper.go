package scheduling

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/clock"
)

const sweepBatchSize = 500

// Sweeper periodically marks appointments that were never attended as
// no-shows. It runs independently of request handling; idempotency
// comes from the ledger's compare-and-set transition, so overlapping or
// repeated sweeps cannot double-transition a row.
type Sweeper struct {
	ledger   Ledger
	clock    clock.Clock
	logger   zerolog.Logger
	interval time.Duration
	grace    time.Duration
}

func NewSweeper(ledger Ledger, clk clock.Clock, logger zerolog.Logger, interval, grace time.Duration) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		clock:    clk,
		logger:   logger,
		interval: interval,
		grace:    grace,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. Start it in
// its own goroutine from serve.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("grace", s.grace).
		Msg("overdue sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("overdue sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Sweep transitions every scheduled or confirmed appointment whose
// start lies more than the grace period in the past to no_show. One bad
// row does not abort the batch; failures are logged and retried on the
// next cycle. Returns the number of appointments transitioned.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.grace)

	overdue, err := s.ledger.ListOverdue(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, a := range overdue {
		obs := Observation{
			AppointmentID: a.ID,
			Note:          "missed appointment, automatically marked as no-show",
			Actor:         "system",
			CreatedAt:     now,
		}
		applied, err := s.ledger.Transition(ctx, a.ID, a.State, StateNoShow, now, obs)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("appointment_id", a.ID.String()).
				Msg("could not mark appointment no-show, will retry next cycle")
			continue
		}
		if applied {
			swept++
		}
	}

	if swept > 0 {
		s.logger.Info().Int("count", swept).Msg("marked overdue appointments no-show")
	}
	return swept, nil
}
