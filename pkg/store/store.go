// Package store provides the durable key-value tables backing the link
// registry and the watermark store. Both a JSON file driver and a SQLite
// driver conform; the registry layer does not care which is in use.
package store

import "fmt"

// Table is a small durable string-to-string map. Load is called once at
// startup; Save persists the full table synchronously and must not return
// until the data is durable.
type Table interface {
	Load() (map[string]string, error)
	Save(data map[string]string) error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the named table for the configured driver. For the file
// driver, path is a directory and each table is a JSON file inside it; for
// sqlite, path is the database file and each table is a SQL table.
func Open(driver, path, table string) (Table, error) {
	switch driver {
	case DriverFile, "":
		return NewFileTable(path, table), nil
	case DriverSQLite:
		return OpenSQLiteTable(path, table)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
