// Package dialect maps a logical UUID column to the native column type of
// each supported SQL dialect.
//
// Dispatch is a table from Dialect to TypeFunc; supporting another engine
// means adding a row, and every other name fails with ErrUnsupportedDialect
// when the schema is defined rather than when rows are written.
package dialect

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedDialect is returned for a dialect without a binary UUID mapping
var ErrUnsupportedDialect = errors.New("dialect: no binary uuid mapping")

// Dialect identifies a storage engine. Values match gorm dialector names.
type Dialect string

const (
	// MySQL has a native fixed-length binary type.
	MySQL Dialect = "mysql"
	// SQLite is dynamically typed; declared widths are advisory.
	SQLite Dialect = "sqlite"
)

// Column is the logical declaration of a UUID column
type Column struct {
	Name       string
	Nullable   bool
	Unique     bool
	PrimaryKey bool
}

// TypeFunc returns the native type of a UUID column
type TypeFunc func(col Column) string

var uuidTypes = map[Dialect]TypeFunc{
	MySQL:  func(Column) string { return "binary(16)" },
	SQLite: func(Column) string { return "blob(256)" },
}

var aliases = map[string]Dialect{
	"mysql":   MySQL,
	"sqlite":  SQLite,
	"sqlite3": SQLite,
}

// Parse resolves a driver or dialector name to a supported Dialect
func Parse(name string) (Dialect, error) {
	d, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", unsupported(name)
	}
	return d, nil
}

// Supported returns the recognised dialects in a stable order
func Supported() []Dialect {
	return []Dialect{MySQL, SQLite}
}

// ColumnType returns the native type for a UUID column in dialect d
func ColumnType(d Dialect, col Column) (string, error) {
	fn, ok := uuidTypes[d]
	if !ok {
		return "", unsupported(string(d))
	}
	return fn(col), nil
}

func unsupported(name string) error {
	return fmt.Errorf("%w: %q (supported: mysql, sqlite)", ErrUnsupportedDialect, name)
}
