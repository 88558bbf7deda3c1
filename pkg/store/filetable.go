package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileTable stores a table as a single JSON object in <dir>/<name>.json.
// Writes go through a temp file and rename so a crash mid-write never
// leaves a truncated table behind.
type FileTable struct {
	path string
}

func NewFileTable(dir, name string) *FileTable {
	return &FileTable{path: filepath.Join(dir, name+".json")}
}

func (t *FileTable) Load() (map[string]string, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", t.path, err)
	}

	out := map[string]string{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", t.path, err)
	}
	return out, nil
}

func (t *FileTable) Save(data map[string]string) error {
	blob, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(t.path)+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), t.path)
}
