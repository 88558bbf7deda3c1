package registry

import (
	"errors"
	"sync"
	"testing"
)

type memTable struct {
	mu      sync.Mutex
	data    map[string]string
	saves   int
	saveErr error
}

func newMemTable(data map[string]string) *memTable {
	if data == nil {
		data = map[string]string{}
	}
	return &memTable{data: data}
}

func (t *memTable) Load() (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.data))
	for k, v := range t.data {
		out[k] = v
	}
	return out, nil
}

func (t *memTable) Save(data map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saves++
	if t.saveErr != nil {
		return t.saveErr
	}
	t.data = make(map[string]string, len(data))
	for k, v := range data {
		t.data[k] = v
	}
	return nil
}

func TestLinkCanonicalizesLanguage(t *testing.T) {
	links, err := LoadLinks(newMemTable(nil))
	if err != nil {
		t.Fatal(err)
	}

	link, err := links.Link("chan-1", "  fr ")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if link.Lang != "FR" {
		t.Errorf("expected canonical FR, got %q", link.Lang)
	}
	if !links.Contains("chan-1") {
		t.Error("linked channel should be contained")
	}
}

func TestLinkUpsertsExistingChannel(t *testing.T) {
	links, err := LoadLinks(newMemTable(nil))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := links.Link("chan-1", "FR"); err != nil {
		t.Fatal(err)
	}
	if _, err := links.Link("chan-1", "DE"); err != nil {
		t.Fatal(err)
	}

	list := links.List()
	if len(list) != 1 {
		t.Fatalf("re-linking must replace, not duplicate: got %d entries", len(list))
	}
	if list[0].Lang != "DE" {
		t.Errorf("expected updated language DE, got %q", list[0].Lang)
	}
}

func TestLinkPersistsBeforeReturning(t *testing.T) {
	table := newMemTable(nil)
	links, err := LoadLinks(table)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := links.Link("chan-1", "FR"); err != nil {
		t.Fatal(err)
	}

	persisted, _ := table.Load()
	if persisted["chan-1"] != "FR" {
		t.Errorf("link not durable after return: %v", persisted)
	}
}

func TestLinkRollbackOnSaveFailure(t *testing.T) {
	table := newMemTable(nil)
	table.saveErr = errors.New("disk full")
	links, err := LoadLinks(table)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := links.Link("chan-1", "FR"); err == nil {
		t.Fatal("expected persistence error")
	}
	if links.Contains("chan-1") {
		t.Error("failed link must not survive in memory")
	}
	if got := len(links.List()); got != 0 {
		t.Errorf("expected empty table after rollback, got %d entries", got)
	}
}

func TestUnlinkNotLinked(t *testing.T) {
	table := newMemTable(nil)
	links, err := LoadLinks(table)
	if err != nil {
		t.Fatal(err)
	}

	existed, err := links.Unlink("chan-1")
	if err != nil {
		t.Fatalf("unlink of an unlinked channel is not an error: %v", err)
	}
	if existed {
		t.Error("expected existed=false")
	}
	if table.saves != 0 {
		t.Errorf("no-op unlink must not touch the store, got %d saves", table.saves)
	}
}

func TestUnlinkRollbackOnSaveFailure(t *testing.T) {
	table := newMemTable(map[string]string{"chan-1": "FR", "chan-2": "DE"})
	links, err := LoadLinks(table)
	if err != nil {
		t.Fatal(err)
	}

	table.saveErr = errors.New("disk full")
	existed, err := links.Unlink("chan-1")
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if !existed {
		t.Error("existed should still report the pre-call state")
	}
	if !links.Contains("chan-1") {
		t.Error("failed unlink must leave the binding in place")
	}
}

func TestDestinationsExcludeSource(t *testing.T) {
	links, err := LoadLinks(newMemTable(map[string]string{
		"A": "EN", "B": "FR", "C": "DE",
	}))
	if err != nil {
		t.Fatal(err)
	}

	dests := links.Destinations("A")
	if len(dests) != 2 {
		t.Fatalf("expected 2 destinations, got %d", len(dests))
	}
	for _, d := range dests {
		if d.ChannelID == "A" {
			t.Error("source channel must never appear in its own destinations")
		}
	}
}

func TestDestinationsForUnlinkedSource(t *testing.T) {
	links, err := LoadLinks(newMemTable(map[string]string{"A": "EN", "B": "FR"}))
	if err != nil {
		t.Fatal(err)
	}

	// An unlinked source still fans out to every binding (the backfill path
	// relies on this); the live path gates on Contains separately.
	if got := len(links.Destinations("Z")); got != 2 {
		t.Errorf("expected 2 destinations, got %d", got)
	}
}

func TestListInsertionOrder(t *testing.T) {
	links, err := LoadLinks(newMemTable(nil))
	if err != nil {
		t.Fatal(err)
	}

	for _, ch := range []string{"gamma", "alpha", "beta"} {
		if _, err := links.Link(ch, "EN"); err != nil {
			t.Fatal(err)
		}
	}

	list := links.List()
	want := []string{"gamma", "alpha", "beta"}
	for i, link := range list {
		if link.ChannelID != want[i] {
			t.Errorf("position %d: got %q, want %q", i, link.ChannelID, want[i])
		}
	}
}
