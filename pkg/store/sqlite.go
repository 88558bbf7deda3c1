package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteTable stores a table as (k TEXT PRIMARY KEY, v TEXT) rows. Save
// replaces the whole table in one transaction, mirroring the file driver's
// whole-map semantics.
type SQLiteTable struct {
	db   *sql.DB
	name string
}

func OpenSQLiteTable(path, name string) (*SQLiteTable, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store %s: %w", path, err)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (k TEXT PRIMARY KEY, v TEXT NOT NULL)`, name)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table %s: %w", name, err)
	}

	return &SQLiteTable{db: db, name: name}, nil
}

func (t *SQLiteTable) Load() (map[string]string, error) {
	rows, err := t.db.Query(fmt.Sprintf(`SELECT k, v FROM %q`, t.name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (t *SQLiteTable) Save(data map[string]string) error {
	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %q`, t.name)); err != nil {
		return err
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (k, v) VALUES (?, ?)`, t.name))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for k, v := range data {
		if _, err := stmt.Exec(k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (t *SQLiteTable) Close() error {
	return t.db.Close()
}
