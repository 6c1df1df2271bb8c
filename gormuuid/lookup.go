package gormuuid

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoPrimaryKey is returned by Resolve for models without a primary key
var ErrNoPrimaryKey = errors.New("gormuuid: model has no primary key")

// WhereID is a scope matching column against a textual UUID. The text is
// encoded before the clause is built so the database compares binary values
// and can use the column index. Invalid text is recorded on the statement.
func WhereID(column, text string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		id, err := Parse(text)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		b, err := id.Binary()
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: column},
			Value:  b.Bytes(),
		})
	}
}

// Resolve loads the record of dest's model whose primary key matches text,
// the way a router binds a path parameter to a model.
func Resolve(db *gorm.DB, dest any, text string) error {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(dest); err != nil {
		return err
	}
	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		return fmt.Errorf("%w: %s", ErrNoPrimaryKey, stmt.Schema.Name)
	}
	return db.Scopes(WhereID(pk.DBName, text)).Take(dest).Error
}
