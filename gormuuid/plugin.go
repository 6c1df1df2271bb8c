package gormuuid

import (
	"reflect"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/Lzww0608/binuuid"
	"github.com/Lzww0608/binuuid/dialect"
)

const callbackName = "binuuid:assign_ids"

// Plugin enables binary UUID columns on a gorm connection. It rejects
// dialects without a binary mapping when registered, and mints IDs for
// zero-valued ID primary keys before each create.
type Plugin struct {
	Factory *binuuid.Factory
	Logger  *zerolog.Logger
}

// Name implements gorm.Plugin
func (p *Plugin) Name() string {
	return "binuuid"
}

// Initialize implements gorm.Plugin
func (p *Plugin) Initialize(db *gorm.DB) error {
	d, err := dialect.Parse(db.Dialector.Name())
	if err != nil {
		return err
	}
	if p.Factory == nil {
		p.Factory = binuuid.NewFactory(binuuid.OrderedTimeCodec{}, nil)
	}
	if err := p.Factory.SetCodec(binuuid.OrderedTimeCodec{}); err != nil {
		return err
	}

	p.logger().Debug().
		Str("dialect", string(d)).
		Str("table_prefix", tablePrefix(db)).
		Msg("binary uuid columns enabled")

	return db.Callback().Create().Before("gorm:create").Register(callbackName, p.assignIDs)
}

func (p *Plugin) assignIDs(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}

	rv := db.Statement.ReflectValue
	for _, field := range db.Statement.Schema.PrimaryFields {
		if field.FieldType != idType {
			continue
		}
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				p.assign(db, field, reflect.Indirect(rv.Index(i)))
			}
		case reflect.Struct:
			p.assign(db, field, rv)
		}
	}
}

func (p *Plugin) assign(db *gorm.DB, field *schema.Field, rv reflect.Value) {
	ctx := db.Statement.Context
	if _, zero := field.ValueOf(ctx, rv); !zero {
		return
	}
	id, err := New(p.Factory)
	if err != nil {
		_ = db.AddError(err)
		return
	}
	if err := field.Set(ctx, rv, id); err != nil {
		_ = db.AddError(err)
	}
}

func (p *Plugin) logger() *zerolog.Logger {
	if p.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return p.Logger
}

func tablePrefix(db *gorm.DB) string {
	if ns, ok := db.NamingStrategy.(schema.NamingStrategy); ok {
		return ns.TablePrefix
	}
	return ""
}

var _ gorm.Plugin = (*Plugin)(nil)
