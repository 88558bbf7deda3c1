package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileTableMissingFile(t *testing.T) {
	table := NewFileTable(t.TempDir(), "links")

	data, err := table.Load()
	if err != nil {
		t.Fatalf("load of missing file should succeed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty table, got %v", data)
	}
}

func TestFileTableRoundtrip(t *testing.T) {
	dir := t.TempDir()
	table := NewFileTable(dir, "links")

	want := map[string]string{"chan-1": "FR", "chan-2": "DE"}
	if err := table.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := NewFileTable(dir, "links").Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %q: got %q, want %q", k, got[k], v)
		}
	}
}

func TestFileTableSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	table := NewFileTable(dir, "links")

	if err := table.Save(map[string]string{"chan-1": "FR"}); err != nil {
		t.Fatal(err)
	}
	if err := table.Save(map[string]string{"chan-2": "DE"}); err != nil {
		t.Fatal(err)
	}

	got, err := table.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["chan-1"]; ok {
		t.Error("save must replace the full table, stale key survived")
	}
	if got["chan-2"] != "DE" {
		t.Errorf("expected chan-2=DE, got %v", got)
	}
}

func TestFileTablePermissions(t *testing.T) {
	dir := t.TempDir()
	table := NewFileTable(dir, "links")

	if err := table.Save(map[string]string{"chan-1": "FR"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, "links.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestFileTableCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "links.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileTable(dir, "links").Load(); err == nil {
		t.Error("expected error for corrupt table file")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("etcd", t.TempDir(), "links"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestOpenDefaultsToFile(t *testing.T) {
	table, err := Open("", t.TempDir(), "links")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := table.(*FileTable); !ok {
		t.Errorf("empty driver should default to file, got %T", table)
	}
}
