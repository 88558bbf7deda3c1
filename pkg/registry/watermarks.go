package registry

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/tinyland-inc/babelrelay/pkg/store"
)

// Marker is a per-channel message position. Discord markers are decimal
// snowflakes and compare numerically; markers that do not parse as integers
// (Slack "ts" values) fall back to lexicographic order, which is correct
// for their fixed-width format.
type Marker string

// MarkerZero is the lowest marker, meaning "no prior progress".
const MarkerZero Marker = ""

// Less reports whether m orders strictly before other.
func (m Marker) Less(other Marker) bool {
	if m == MarkerZero {
		return other != MarkerZero
	}
	if other == MarkerZero {
		return false
	}
	a, errA := strconv.ParseUint(string(m), 10, 64)
	b, errB := strconv.ParseUint(string(other), 10, 64)
	if errA == nil && errB == nil {
		return a < b
	}
	return m < other
}

// Watermarks tracks, per channel, the marker of the last item a completed
// backfill batch relayed. Advance never moves a watermark backwards.
type Watermarks struct {
	mu    sync.Mutex
	table store.Table
	marks map[string]string
}

// LoadWatermarks reads the watermark table from the backing store.
func LoadWatermarks(table store.Table) (*Watermarks, error) {
	data, err := table.Load()
	if err != nil {
		return nil, fmt.Errorf("loading watermark table: %w", err)
	}
	return &Watermarks{table: table, marks: data}, nil
}

// Get returns the stored marker for the channel, or MarkerZero if the
// channel has never completed a backfill.
func (w *Watermarks) Get(channelID string) Marker {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Marker(w.marks[channelID])
}

// Advance raises the channel's watermark to marker. Calls with a marker at
// or below the current value are no-ops: this guard is what keeps an
// out-of-order or concurrent backfill from rewinding progress.
func (w *Watermarks) Advance(channelID string, marker Marker) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := Marker(w.marks[channelID])
	if !current.Less(marker) {
		return nil
	}

	w.marks[channelID] = string(marker)
	if err := w.table.Save(w.marks); err != nil {
		w.marks[channelID] = string(current)
		if current == MarkerZero {
			delete(w.marks, channelID)
		}
		return fmt.Errorf("persisting watermark table: %w", err)
	}
	return nil
}
