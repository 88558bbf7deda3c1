// Package sweep runs scheduled backfill passes over configured source
// channels, so destinations catch up even when the relay was down while
// messages were posted.
package sweep

import (
	"context"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"

	"github.com/tinyland-inc/babelrelay/pkg/config"
)

// Backfiller is the slice of the engine the sweeper needs.
type Backfiller interface {
	Backfill(ctx context.Context, transport, channelID string, limit int) (int, error)
}

type Service struct {
	cfg      config.SweepConfig
	engine   Backfiller
	cron     *gronx.Gronx
	log      zerolog.Logger
	stopOnce chan struct{}
}

func NewService(cfg config.SweepConfig, engine Backfiller, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		engine:   engine,
		cron:     gronx.New(),
		log:      log.With().Str("component", "sweep").Logger(),
		stopOnce: make(chan struct{}),
	}
}

// Start launches the minute ticker. No-op when disabled or nothing to
// sweep.
func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled || len(s.cfg.Channels) == 0 {
		return
	}
	if !s.cron.IsValid(s.cfg.Cron) {
		s.log.Error().Str("cron", s.cfg.Cron).Msg("invalid sweep schedule, sweeps disabled")
		return
	}
	go s.run(ctx)
}

func (s *Service) Stop() {
	select {
	case <-s.stopOnce:
	default:
		close(s.stopOnce)
	}
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopOnce:
			return
		case now := <-ticker.C:
			due, err := s.cron.IsDue(s.cfg.Cron, now)
			if err != nil || !due {
				continue
			}
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	limit := s.cfg.Limit
	if limit <= 0 {
		limit = 100
	}
	for _, target := range s.cfg.Channels {
		count, err := s.engine.Backfill(ctx, target.Transport, target.ChannelID, limit)
		if err != nil {
			s.log.Warn().Err(err).
				Str("channel_id", target.ChannelID).
				Msg("scheduled backfill failed")
			continue
		}
		if count > 0 {
			s.log.Info().
				Str("channel_id", target.ChannelID).
				Int("relayed", count).
				Msg("scheduled backfill relayed items")
		}
	}
}
