// Package clockseq persists the version 1 clock sequence per node so that a
// restarted process never reuses the sequence of its previous run.
package clockseq

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lzww0608/binuuid"
)

// seqSpace is the number of distinct 14-bit clock sequences
const seqSpace = 1 << 14

// UUIDClockSequence is one row per node. The table name follows the
// connection's naming strategy, so a table prefix applies.
type UUIDClockSequence struct {
	Node      string `gorm:"primaryKey;size:32"`
	Seq       uint16 `gorm:"not null"`
	UpdatedAt time.Time
}

// Store hands out clock sequences from a database table
type Store struct {
	db *gorm.DB
}

// NewStore returns a store backed by db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the sequence table
func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&UUIDClockSequence{})
}

// Next advances and returns the clock sequence of node. The first call for
// a node stores a random seed.
func (s *Store) Next(ctx context.Context, node string) (uint16, error) {
	seed, err := randomSeq()
	if err != nil {
		return 0, err
	}

	var seq uint16
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&UUIDClockSequence{Node: node, Seq: seed})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			seq = seed
			return nil
		}

		if err := tx.Model(&UUIDClockSequence{}).
			Where("node = ?", node).
			Updates(map[string]any{
				"seq":        gorm.Expr("(seq + 1) % ?", seqSpace),
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		var row UUIDClockSequence
		if err := tx.Where("node = ?", node).Take(&row).Error; err != nil {
			return err
		}
		seq = row.Seq
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clockseq: advance %s: %w", node, err)
	}
	return seq, nil
}

// Option advances the sequence of node and returns a generator option
// using it.
func (s *Store) Option(ctx context.Context, node [6]byte) (binuuid.Option, error) {
	seq, err := s.Next(ctx, hex.EncodeToString(node[:]))
	if err != nil {
		return nil, err
	}
	return binuuid.WithClockSequence(seq), nil
}

func randomSeq() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]) % seqSpace, nil
}
