// Package channels implements the chat-platform transports. Each channel
// owns a vendor session, publishes inbound relay events to the bus, and
// exposes the engine's Transport capability surface.
package channels

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/registry"
)

// Channel is the lifecycle surface the manager drives.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}

// Admin is the administrative consumer contract the command surfaces call
// into. The relay engine satisfies it.
type Admin interface {
	Link(channelID, lang string) (registry.Link, error)
	Unlink(channelID string) (bool, error)
	Links() []registry.Link
	Backfill(ctx context.Context, transport, channelID string, limit int) (int, error)
}

// BaseChannel carries the pieces every transport shares.
type BaseChannel struct {
	name    string
	bus     *bus.EventBus
	log     zerolog.Logger
	running atomic.Bool
}

func NewBaseChannel(name string, b *bus.EventBus, log zerolog.Logger) *BaseChannel {
	return &BaseChannel{
		name: name,
		bus:  b,
		log:  log.With().Str("component", "channel").Str("channel", name).Logger(),
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// publish hands an inbound event to the engine via the bus.
func (c *BaseChannel) publish(ev bus.Event) {
	ev.Transport = c.name
	if err := c.bus.Publish(context.Background(), ev); err != nil {
		c.log.Warn().Err(err).Str("channel_id", ev.ChannelID).Msg("dropping inbound event")
	}
}
