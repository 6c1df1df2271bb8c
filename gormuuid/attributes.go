package gormuuid

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

// DefaultTextSuffix is appended to column names by TextAttributes
const DefaultTextSuffix = "_text"

// TextAttributes exposes the canonical text of every ID attribute of a
// model under "<column><Suffix>". Stored column names are not affected.
type TextAttributes struct {
	Suffix string
}

// Of returns the text attributes of model. Unset IDs map to nil.
func (a TextAttributes) Of(db *gorm.DB, model any) (map[string]any, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, err
	}

	rv := reflect.Indirect(reflect.ValueOf(model))
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("gormuuid: text attributes need a struct, got %s", rv.Kind())
	}

	suffix := a.Suffix
	if suffix == "" {
		suffix = DefaultTextSuffix
	}

	out := make(map[string]any)
	for _, field := range stmt.Schema.Fields {
		if field.DBName == "" || !isIDField(field) {
			continue
		}
		key := field.DBName + suffix
		v, zero := field.ValueOf(context.Background(), rv)
		if zero {
			out[key] = nil
			continue
		}
		switch id := v.(type) {
		case ID:
			out[key] = id.String()
		case *ID:
			out[key] = id.String()
		}
	}
	return out, nil
}
