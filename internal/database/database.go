// Package database opens the gorm connection described by the configuration
// with the binuuid plugin installed.
package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/Lzww0608/binuuid"
	"github.com/Lzww0608/binuuid/dialect"
	"github.com/Lzww0608/binuuid/gormuuid"
	"github.com/Lzww0608/binuuid/internal/config"
	"github.com/Lzww0608/binuuid/internal/logging"
)

// Open connects to cfg's database. The factory mints primary keys for
// records created through the returned handle; nil selects a default one.
func Open(cfg config.Database, factory *binuuid.Factory, logger zerolog.Logger) (*gorm.DB, error) {
	d, err := dialect.Parse(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch d {
	case dialect.MySQL:
		dialector = mysql.Open(cfg.DSN)
	case dialect.SQLite:
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{TablePrefix: cfg.TablePrefix},
		Logger:         logging.Gorm(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", d, err)
	}

	if d == dialect.SQLite {
		// In-memory databases exist per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.Use(&gormuuid.Plugin{Factory: factory, Logger: &logger}); err != nil {
		return nil, fmt.Errorf("database: install plugin: %w", err)
	}
	return db, nil
}
