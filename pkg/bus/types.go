package bus

// Kind discriminates how a relay event entered the system.
type Kind int

const (
	// KindLive is a message posted live in a linked source channel.
	KindLive Kind = iota
	// KindReaction is a flag-emoji trigger for an ephemeral in-place translation.
	KindReaction
	// KindBackfill is a historical item replayed by a backfill batch.
	KindBackfill
)

func (k Kind) String() string {
	switch k {
	case KindLive:
		return "live"
	case KindReaction:
		return "reaction"
	case KindBackfill:
		return "backfill"
	default:
		return "unknown"
	}
}

// Author identifies the original sender of a relayed message.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	// IsRelay marks authors that are themselves relay-created identities
	// (bots, webhooks). Events from relay authors are never dispatched.
	IsRelay bool `json:"is_relay,omitempty"`
}

// Reply carries the original-language context of a replied-to message.
type Reply struct {
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
}

// Event is the single inbound shape all trigger paths converge on.
type Event struct {
	Kind      Kind   `json:"kind"`
	Transport string `json:"transport"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Author    Author `json:"author"`
	Content   string `json:"content"`
	Reply     *Reply `json:"reply,omitempty"`
	// TargetLang is set on reaction events only: the language bound to the
	// flag emoji that triggered the event.
	TargetLang string `json:"target_lang,omitempty"`
}
