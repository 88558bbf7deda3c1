package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// FailureKind classifies a per-destination failure.
type FailureKind string

const (
	FailureTranslation  FailureKind = "translation"
	FailureIdentity     FailureKind = "identity"
	FailurePost         FailureKind = "post"
	FailureUnresolvable FailureKind = "unresolvable"
)

// escalates reports whether a failure of this kind is delivered to the
// operator. Unresolvable destinations are an expected administrative
// condition and stay local.
func (k FailureKind) escalates() bool {
	return k != FailureUnresolvable
}

// Escalator classifies per-destination failures and, when an operator
// notifier is configured, delivers them as direct notifications.
// Notification delivery is best-effort: a failed notification is logged
// and never retried.
type Escalator struct {
	notifier Notifier
	log      zerolog.Logger
}

func NewEscalator(notifier Notifier, log zerolog.Logger) *Escalator {
	return &Escalator{
		notifier: notifier,
		log:      log.With().Str("component", "escalator").Logger(),
	}
}

// SetNotifier installs the operator notifier. Called during startup
// wiring, before any traffic flows.
func (e *Escalator) SetNotifier(n Notifier) {
	e.notifier = n
}

func (e *Escalator) Escalate(ctx context.Context, kind FailureKind, channelID string, err error) {
	e.log.Error().Err(err).
		Str("failure", string(kind)).
		Str("channel_id", channelID).
		Msg("destination failed")

	if !kind.escalates() || e.notifier == nil {
		return
	}

	text := fmt.Sprintf("⚠️ %s failure relaying to channel %s: %v", kind, channelID, err)
	if nerr := e.notifier.NotifyOperator(ctx, text); nerr != nil {
		e.log.Warn().Err(nerr).Msg("operator notification failed")
	}
}
