package dialect

import (
	"strings"
)

// Grammar renders UUID column definitions for one dialect. The table prefix
// is taken from the host's active naming configuration, never hardcoded.
type Grammar struct {
	Dialect     Dialect
	TablePrefix string
}

// NewGrammar validates name and returns a Grammar carrying prefix
func NewGrammar(name, prefix string) (*Grammar, error) {
	d, err := Parse(name)
	if err != nil {
		return nil, err
	}
	return &Grammar{Dialect: d, TablePrefix: prefix}, nil
}

// Table returns the prefixed, quoted table name
func (g *Grammar) Table(name string) string {
	return g.Quote(g.TablePrefix + name)
}

// Quote quotes an identifier
func (g *Grammar) Quote(ident string) string {
	if g.Dialect == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// TypeUUID returns the native UUID type. The dialect was validated by
// NewGrammar, so the lookup cannot fail for a Grammar built there.
func (g *Grammar) TypeUUID(col Column) (string, error) {
	return ColumnType(g.Dialect, col)
}

// ColumnDefinition renders a full column clause, e.g.
// `id` binary(16) NOT NULL PRIMARY KEY
func (g *Grammar) ColumnDefinition(col Column) (string, error) {
	typ, err := g.TypeUUID(col)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(g.Quote(col.Name))
	sb.WriteByte(' ')
	sb.WriteString(typ)
	if !col.Nullable || col.PrimaryKey {
		sb.WriteString(" NOT NULL")
	}
	switch {
	case col.PrimaryKey:
		sb.WriteString(" PRIMARY KEY")
	case col.Unique:
		sb.WriteString(" UNIQUE")
	}
	return sb.String(), nil
}
