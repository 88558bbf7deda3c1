package channels

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/config"
)

// Manager builds the enabled channels from config and drives their
// lifecycle.
type Manager struct {
	channels map[string]Channel
	log      zerolog.Logger
}

func NewManager(cfg *config.Config, b *bus.EventBus, admin Admin, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		log:      log.With().Str("component", "channels").Logger(),
	}

	if cfg.Channels.Discord.Enabled {
		dc, err := NewDiscordChannel(cfg.Channels.Discord, cfg.Operator, b, admin, log)
		if err != nil {
			return nil, err
		}
		m.channels[dc.Name()] = dc
	}

	if cfg.Channels.Slack.Enabled {
		sc := NewSlackChannel(cfg.Channels.Slack, b, log)
		m.channels[sc.Name()] = sc
	}

	return m, nil
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	ch, ok := m.channels[name]
	return ch, ok
}

func (m *Manager) All() []Channel {
	out := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, ch)
	}
	return out
}

func (m *Manager) EnabledNames() string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func (m *Manager) StartAll(ctx context.Context) error {
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			m.log.Error().Err(err).Str("channel", name).Msg("channel failed to start")
			return err
		}
		m.log.Info().Str("channel", name).Msg("channel started")
	}
	return nil
}

func (m *Manager) StopAll(ctx context.Context) {
	for name, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			m.log.Warn().Err(err).Str("channel", name).Msg("channel failed to stop cleanly")
		}
	}
}
