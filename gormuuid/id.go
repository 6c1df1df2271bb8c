// Package gormuuid stores binuuid UUIDs in gorm models as 16-byte binary
// columns.
//
// Declare key and reference attributes as ID (or *ID for nullable
// references). On write the value is encoded with binuuid.OrderedTimeCodec,
// on read it is decoded back, and the column type is chosen per dialect by
// package dialect:
//
//	type Order struct {
//	    ID         gormuuid.ID  `gorm:"primaryKey" json:"id_text"`
//	    CustomerID *gormuuid.ID `json:"customer_id_text"`
//	}
//
// The json name of a field is the text-exposed attribute; renaming it never
// touches the stored column name.
package gormuuid

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/Lzww0608/binuuid"
	"github.com/Lzww0608/binuuid/dialect"
)

var (
	codec  binuuid.Codec = binuuid.OrderedTimeCodec{}
	idType               = reflect.TypeOf(ID{})
)

// ID is a UUID model attribute persisted in its ordered binary form.
// The zero ID is stored as NULL.
type ID struct {
	binuuid.UUID
}

// New mints an ID with f
func New(f *binuuid.Factory) (ID, error) {
	u, err := f.New()
	if err != nil {
		return ID{}, err
	}
	return ID{UUID: u}, nil
}

// Parse parses the textual form of an ID
func Parse(s string) (ID, error) {
	u, err := binuuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", err, s)
	}
	return ID{UUID: u}, nil
}

// MustParse is like Parse but panics on error
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromBinary wraps a value that is already in stored form
func FromBinary(b []byte) (ID, error) {
	u, err := codec.Decode(b)
	if err != nil {
		return ID{}, err
	}
	return ID{UUID: u}, nil
}

// IsZero reports whether the ID is unset
func (id ID) IsZero() bool {
	return id.UUID.IsNil()
}

// Binary returns the stored form
func (id ID) Binary() (binuuid.BinaryUUID, error) {
	return codec.Encode(id.UUID)
}

// Value implements driver.Valuer
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	b, err := codec.Encode(id.UUID)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Scan implements sql.Scanner. 16-byte values are decoded; textual values
// (hex, canonical, braced or urn form) are parsed so columns still holding
// text can be read. Any other length fails with binuuid.ErrInvalidLength.
func (id *ID) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*id = ID{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("gormuuid: cannot scan type %T into ID", value)
	}

	switch len(b) {
	case 0:
		*id = ID{}
		return nil
	case 16:
		u, err := codec.Decode(b)
		if err != nil {
			return err
		}
		id.UUID = u
		return nil
	case 32, 36, 38, 45:
		return id.UUID.UnmarshalText(b)
	default:
		return fmt.Errorf("%w: got %d", binuuid.ErrInvalidLength, len(b))
	}
}

// GormDataType implements schema.GormDataTypeInterface
func (ID) GormDataType() string {
	return "uuid"
}

// GormDBDataType returns the native column type for the connection's
// dialect. Unsupported dialects record ErrUnsupportedDialect on db so the
// migration fails instead of falling back to a text column.
func (ID) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	typ, err := dialect.ColumnType(dialect.Dialect(db.Dialector.Name()), columnOf(field))
	if err != nil {
		_ = db.AddError(err)
		return ""
	}
	return typ
}

// MarshalJSON emits the canonical text, or null for the zero ID
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.UUID.String())
}

// UnmarshalJSON accepts the textual form or null
func (id *ID) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*id = ID{}
		return nil
	}
	return id.UUID.UnmarshalText([]byte(*s))
}

func columnOf(field *schema.Field) dialect.Column {
	if field == nil {
		return dialect.Column{}
	}
	return dialect.Column{
		Name:       field.DBName,
		Nullable:   !field.NotNull && !field.PrimaryKey,
		Unique:     field.Unique,
		PrimaryKey: field.PrimaryKey,
	}
}

func isIDField(field *schema.Field) bool {
	return field.IndirectFieldType == idType
}
