// Package registry holds the relay's persistent routing state: the link
// table (source channel -> target language) and the backfill watermarks.
// Both are loaded once at startup and persisted synchronously on every
// mutation, so a crash after a successful call never loses that mutation.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tinyland-inc/babelrelay/pkg/store"
)

// Link binds a source channel to the target language its copies are
// translated into when relayed elsewhere.
type Link struct {
	ChannelID string `json:"channel_id"`
	Lang      string `json:"lang"`
}

// Links is the in-memory link table. All mutations go through Link/Unlink
// and hit the backing table before returning.
type Links struct {
	mu      sync.Mutex
	table   store.Table
	entries map[string]string
	order   []string
}

// LoadLinks reads the full link table from the backing store.
func LoadLinks(table store.Table) (*Links, error) {
	data, err := table.Load()
	if err != nil {
		return nil, fmt.Errorf("loading link table: %w", err)
	}

	order := make([]string, 0, len(data))
	for ch := range data {
		order = append(order, ch)
	}
	sort.Strings(order)

	return &Links{table: table, entries: data, order: order}, nil
}

// Link upserts a channel binding. The language code is canonicalized to
// uppercase. The write is durable before Link returns; on a persistence
// failure the in-memory table is rolled back so state never diverges from
// what the caller was told.
func (l *Links) Link(channelID, lang string) (Link, error) {
	lang = strings.ToUpper(strings.TrimSpace(lang))

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, existed := l.entries[channelID]
	l.entries[channelID] = lang
	if !existed {
		l.order = append(l.order, channelID)
	}

	if err := l.table.Save(l.entries); err != nil {
		if existed {
			l.entries[channelID] = prev
		} else {
			delete(l.entries, channelID)
			l.order = l.order[:len(l.order)-1]
		}
		return Link{}, fmt.Errorf("persisting link table: %w", err)
	}
	return Link{ChannelID: channelID, Lang: lang}, nil
}

// Unlink removes a channel binding. The second return reports whether the
// channel was linked at all; unlinking an unlinked channel is not an error.
func (l *Links) Unlink(channelID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, existed := l.entries[channelID]
	if !existed {
		return false, nil
	}

	delete(l.entries, channelID)
	idx := -1
	for i, ch := range l.order {
		if ch == channelID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		l.order = append(l.order[:idx], l.order[idx+1:]...)
	}

	if err := l.table.Save(l.entries); err != nil {
		l.entries[channelID] = prev
		if idx >= 0 {
			l.order = append(l.order, "")
			copy(l.order[idx+1:], l.order[idx:])
			l.order[idx] = channelID
		}
		return true, fmt.Errorf("persisting link table: %w", err)
	}
	return true, nil
}

// List returns all bindings in insertion order. The order is for display
// only; the engine attaches no meaning to it.
func (l *Links) List() []Link {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Link, 0, len(l.order))
	for _, ch := range l.order {
		out = append(out, Link{ChannelID: ch, Lang: l.entries[ch]})
	}
	return out
}

// Contains reports whether the channel has a binding.
func (l *Links) Contains(channelID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[channelID]
	return ok
}

// Destinations returns every binding except the source channel's own.
// Self-relay is excluded here, by construction, not by a runtime check in
// the engine.
func (l *Links) Destinations(sourceChannelID string) []Link {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Link, 0, len(l.order))
	for _, ch := range l.order {
		if ch == sourceChannelID {
			continue
		}
		out = append(out, Link{ChannelID: ch, Lang: l.entries[ch]})
	}
	return out
}
