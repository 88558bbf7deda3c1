package relay

import (
	"context"
	"errors"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
)

// ErrDestinationUnresolvable marks a target channel that no longer exists
// or is not accessible. The engine skips such destinations silently; this
// is an administrative condition, not a fault.
var ErrDestinationUnresolvable = errors.New("destination channel unresolvable")

// PostedIdentity is a reusable channel-scoped posting handle (a Discord
// webhook, a Slack bot override). Created lazily, cached for the process
// lifetime by the IdentityBroker.
type PostedIdentity struct {
	ChannelID string
	ID        string
	Token     string
	Name      string
}

// Post is one outbound message, attributed to the original author.
type Post struct {
	Text         string
	AuthorName   string
	AuthorAvatar string
}

// PostedMessage is the handle needed to delete a relayed message later.
type PostedMessage struct {
	ChannelID string
	MessageID string
	Identity  PostedIdentity
}

// HistoryItem is one historical message during backfill.
type HistoryItem struct {
	MessageID string
	Author    bus.Author
	Content   string
	Reply     *bus.Reply
}

// Transport is the capability surface the engine needs from a chat
// platform. Implementations live in pkg/channels; the engine never talks
// to a vendor SDK directly.
type Transport interface {
	Name() string
	PostMessage(ctx context.Context, channelID string, identity PostedIdentity, post Post) (PostedMessage, error)
	DeleteMessage(ctx context.Context, msg PostedMessage) error
	ListIdentities(ctx context.Context, channelID string) ([]PostedIdentity, error)
	CreateIdentity(ctx context.Context, channelID, name string) (PostedIdentity, error)
	// FetchHistory returns up to limit items, oldest first.
	FetchHistory(ctx context.Context, channelID string, limit int) ([]HistoryItem, error)
}

// Notifier delivers operator escalations. Optional; a nil notifier means
// failures are only logged.
type Notifier interface {
	NotifyOperator(ctx context.Context, text string) error
}
