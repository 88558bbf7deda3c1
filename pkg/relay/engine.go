// Package relay implements the dispatch engine: fanning one inbound event
// out to every linked destination, translating, chunking and posting under
// the original author's identity, isolating failures per destination.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/registry"
	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

const (
	// DefaultEphemeralTTL matches the original relay's fixed deletion delay
	// for flag-triggered copies.
	DefaultEphemeralTTL = 60 * time.Second
	// DefaultFanoutLimit bounds concurrent per-destination work within one
	// dispatch, keeping translation and posting rate limits in reach.
	DefaultFanoutLimit = 4
)

// Options wires an Engine. Links, Watermarks and Translator are required.
type Options struct {
	Links        *registry.Links
	Watermarks   *registry.Watermarks
	Translator   translate.Translator
	Notifier     Notifier
	Log          zerolog.Logger
	MaxChunk     int
	EphemeralTTL time.Duration
	FanoutLimit  int
	IdentityName string
}

// Engine owns the dispatch pipeline. Transports register themselves at
// startup; the engine addresses them by name and never sees vendor types.
type Engine struct {
	links        *registry.Links
	marks        *registry.Watermarks
	translator   translate.Translator
	resolver     *ReplyResolver
	broker       *IdentityBroker
	escalator    *Escalator
	log          zerolog.Logger
	maxChunk     int
	ephemeralTTL time.Duration
	fanoutLimit  int

	mu         sync.RWMutex
	transports map[string]Transport

	dispatches sync.WaitGroup
}

func NewEngine(opts Options) *Engine {
	if opts.MaxChunk <= 0 {
		opts.MaxChunk = DefaultMaxChunk
	}
	if opts.EphemeralTTL <= 0 {
		opts.EphemeralTTL = DefaultEphemeralTTL
	}
	if opts.FanoutLimit <= 0 {
		opts.FanoutLimit = DefaultFanoutLimit
	}
	log := opts.Log.With().Str("component", "engine").Logger()

	return &Engine{
		links:        opts.Links,
		marks:        opts.Watermarks,
		translator:   opts.Translator,
		resolver:     NewReplyResolver(opts.Translator, opts.Log),
		broker:       NewIdentityBroker(opts.IdentityName),
		escalator:    NewEscalator(opts.Notifier, opts.Log),
		log:          log,
		maxChunk:     opts.MaxChunk,
		ephemeralTTL: opts.EphemeralTTL,
		fanoutLimit:  opts.FanoutLimit,
		transports:   make(map[string]Transport),
	}
}

// SetNotifier installs the operator notifier once the channel that
// carries escalations exists. Must be called before traffic flows.
func (e *Engine) SetNotifier(n Notifier) {
	e.escalator.SetNotifier(n)
}

// RegisterTransport makes a transport addressable by its name.
func (e *Engine) RegisterTransport(t Transport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transports[t.Name()] = t
}

func (e *Engine) transport(name string) (Transport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.transports[name]
	return t, ok
}

// Run consumes the event bus until the context is canceled. Each event is
// dispatched on its own goroutine so a slow fan-out (or a pending
// ephemeral delete) never blocks the next inbound event.
func (e *Engine) Run(ctx context.Context, b *bus.EventBus) {
	for {
		ev, ok := b.Consume(ctx)
		if !ok {
			e.dispatches.Wait()
			return
		}
		e.dispatches.Add(1)
		go func(ev bus.Event) {
			defer e.dispatches.Done()
			e.Dispatch(ctx, ev)
		}(ev)
	}
}

// Dispatch fans one event out to all eligible destinations and returns the
// per-destination outcomes. Events authored by relay identities are
// dropped before any destination work to prevent relay loops.
func (e *Engine) Dispatch(ctx context.Context, ev bus.Event) DispatchResult {
	if ev.Author.IsRelay {
		return DispatchResult{}
	}

	t, ok := e.transport(ev.Transport)
	if !ok {
		e.log.Error().Str("transport", ev.Transport).Msg("event for unregistered transport")
		return DispatchResult{}
	}

	var dests []registry.Link
	ephemeral := false
	switch ev.Kind {
	case bus.KindReaction:
		// Ad-hoc path: single destination, the source channel itself,
		// translated into the flag's language, auto-deleted later.
		dests = []registry.Link{{ChannelID: ev.ChannelID, Lang: ev.TargetLang}}
		ephemeral = true
	case bus.KindLive:
		if !e.links.Contains(ev.ChannelID) {
			return DispatchResult{}
		}
		dests = e.links.Destinations(ev.ChannelID)
	case bus.KindBackfill:
		dests = e.links.Destinations(ev.ChannelID)
	}
	if len(dests) == 0 {
		return DispatchResult{}
	}

	dispatchID := uuid.NewString()
	log := e.log.With().
		Str("dispatch_id", dispatchID).
		Str("kind", ev.Kind.String()).
		Str("source", ev.ChannelID).
		Logger()

	outcomes := make([]Outcome, len(dests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fanoutLimit)
	for i, dest := range dests {
		g.Go(func() error {
			outcomes[i] = e.relayTo(gctx, t, ev, dest, ephemeral)
			if o := outcomes[i]; !o.OK() {
				e.escalator.Escalate(gctx, o.Kind, o.ChannelID, o.Err)
			}
			// Errors stay in the outcome; returning one would cancel
			// the sibling destinations.
			return nil
		})
	}
	g.Wait()

	result := DispatchResult{Outcomes: outcomes}
	log.Info().
		Int("destinations", len(dests)).
		Int("succeeded", result.Succeeded()).
		Msg("dispatch complete")
	return result
}

// relayTo performs the full per-destination pipeline: translate, resolve
// reply quote, acquire identity, chunk and post.
func (e *Engine) relayTo(ctx context.Context, t Transport, ev bus.Event, dest registry.Link, ephemeral bool) Outcome {
	out := Outcome{ChannelID: dest.ChannelID, Lang: dest.Lang}

	translated, err := e.translator.Translate(ctx, ev.Content, dest.Lang)
	if err != nil {
		out.Kind, out.Err = FailureTranslation, err
		return out
	}

	quote := e.resolver.QuoteBlock(ctx, ev.Reply, dest.Lang)

	identity, err := e.broker.Acquire(ctx, t, dest.ChannelID)
	if err != nil {
		if errors.Is(err, ErrDestinationUnresolvable) {
			out.Kind, out.Err = FailureUnresolvable, err
		} else {
			out.Kind, out.Err = FailureIdentity, err
		}
		return out
	}

	// The quote prefix is re-applied to every chunk, not just the first.
	// Deliberate reproduction of the relay's observed behavior.
	chunks := SplitChunks(quote+translated, e.maxChunk)
	for i, chunk := range chunks {
		text := chunk
		if i > 0 && quote != "" {
			text = quote + chunk
		}
		posted, err := t.PostMessage(ctx, dest.ChannelID, identity, Post{
			Text:         text,
			AuthorName:   ev.Author.DisplayName,
			AuthorAvatar: ev.Author.AvatarURL,
		})
		if err != nil {
			if errors.Is(err, ErrDestinationUnresolvable) {
				out.Kind, out.Err = FailureUnresolvable, err
			} else {
				out.Kind, out.Err = FailurePost, err
			}
			return out
		}
		out.Posted++

		if ephemeral {
			e.scheduleDelete(t, posted)
		}
	}
	return out
}

// scheduleDelete removes an ephemeral copy after the configured delay. The
// timer runs off the dispatch control flow and is never canceled.
func (e *Engine) scheduleDelete(t Transport, msg PostedMessage) {
	log := e.log
	ttl := e.ephemeralTTL
	time.AfterFunc(ttl, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := t.DeleteMessage(ctx, msg); err != nil {
			log.Warn().Err(err).
				Str("channel_id", msg.ChannelID).
				Str("message_id", msg.MessageID).
				Msg("ephemeral delete failed")
		}
	})
}

// Backfill relays the channel's history above the stored watermark to all
// destinations, oldest first, then advances the watermark once for the
// whole batch. Returns the number of items relayed.
//
// The single advance at the end gives at-least-once semantics: a crash
// mid-batch re-relays the whole batch on retry.
func (e *Engine) Backfill(ctx context.Context, transportName, channelID string, limit int) (int, error) {
	t, ok := e.transport(transportName)
	if !ok {
		return 0, errors.New("unknown transport " + transportName)
	}

	items, err := t.FetchHistory(ctx, channelID, limit)
	if err != nil {
		return 0, err
	}

	watermark := e.marks.Get(channelID)
	var lastSeen registry.Marker
	count := 0
	for _, item := range items {
		marker := registry.Marker(item.MessageID)
		if !watermark.Less(marker) {
			continue
		}
		if item.Author.IsRelay {
			continue
		}

		e.Dispatch(ctx, bus.Event{
			Kind:      bus.KindBackfill,
			Transport: transportName,
			ChannelID: channelID,
			MessageID: item.MessageID,
			Author:    item.Author,
			Content:   item.Content,
			Reply:     item.Reply,
		})
		lastSeen = marker
		count++
	}

	if count > 0 {
		if err := e.marks.Advance(channelID, lastSeen); err != nil {
			return count, err
		}
	}

	e.log.Info().
		Str("channel_id", channelID).
		Int("relayed", count).
		Int("fetched", len(items)).
		Msg("backfill complete")
	return count, nil
}

// Link, Unlink, Links and Backfill form the administrative consumer
// contract: the command surface calls these and relays the results back to
// the invoking operator.

func (e *Engine) Link(channelID, lang string) (registry.Link, error) {
	return e.links.Link(channelID, lang)
}

func (e *Engine) Unlink(channelID string) (bool, error) {
	return e.links.Unlink(channelID)
}

func (e *Engine) Links() []registry.Link {
	return e.links.List()
}
