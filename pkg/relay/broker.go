package relay

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultIdentityName tags identities the relay creates so they can be
// recognized and reused on the next run.
const DefaultIdentityName = "BabelRelay"

// IdentityBroker lazily creates one posting identity per destination
// channel and caches it for the process lifetime. Concurrent first-callers
// for the same channel converge on a single created identity.
type IdentityBroker struct {
	name   string
	mu     sync.Mutex
	cache  map[string]PostedIdentity
	flight singleflight.Group
}

func NewIdentityBroker(name string) *IdentityBroker {
	if name == "" {
		name = DefaultIdentityName
	}
	return &IdentityBroker{
		name:  name,
		cache: make(map[string]PostedIdentity),
	}
}

// Acquire returns the cached identity for the channel, looking it up on
// the transport or creating it on first use. Creation failure is a
// per-destination error, never fatal.
func (b *IdentityBroker) Acquire(ctx context.Context, t Transport, channelID string) (PostedIdentity, error) {
	key := t.Name() + ":" + channelID

	b.mu.Lock()
	if id, ok := b.cache[key]; ok {
		b.mu.Unlock()
		return id, nil
	}
	b.mu.Unlock()

	v, err, _ := b.flight.Do(key, func() (any, error) {
		b.mu.Lock()
		if id, ok := b.cache[key]; ok {
			b.mu.Unlock()
			return id, nil
		}
		b.mu.Unlock()

		id, err := b.resolve(ctx, t, channelID)
		if err != nil {
			return PostedIdentity{}, err
		}

		b.mu.Lock()
		b.cache[key] = id
		b.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return PostedIdentity{}, err
	}
	return v.(PostedIdentity), nil
}

func (b *IdentityBroker) resolve(ctx context.Context, t Transport, channelID string) (PostedIdentity, error) {
	existing, err := t.ListIdentities(ctx, channelID)
	if err != nil {
		return PostedIdentity{}, fmt.Errorf("listing identities for %s: %w", channelID, err)
	}
	for _, id := range existing {
		if id.Name == b.name {
			return id, nil
		}
	}

	id, err := t.CreateIdentity(ctx, channelID, b.name)
	if err != nil {
		return PostedIdentity{}, fmt.Errorf("creating identity for %s: %w", channelID, err)
	}
	return id, nil
}
