package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one row of the cart_slots table.
type Record struct {
	SlotKey   string `gorm:"column:slot_key;primaryKey"`
	Payload   string `gorm:"column:payload;not null"`
	Version   int64  `gorm:"column:version;not null;default:0"`
	UpdatedAt time.Time
}

func (Record) TableName() string { return "cart_slots" }

// SQLStore persists slots through GORM. With the sqlite driver it is the local
// store a single-user cart lives in; with postgres it can be shared.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("slot_key = ?", key).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load slot %q: %w", key, err)
	}
	return []byte(rec.Payload), nil
}

// Save upserts the payload. The version column counts writes for operators reading
// the table; nothing in the cart reads it back.
func (s *SQLStore) Save(ctx context.Context, key string, payload []byte) error {
	now := s.now().UTC()
	rec := Record{SlotKey: key, Payload: string(payload), Version: 1, UpdatedAt: now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"payload":    rec.Payload,
			"version":    gorm.Expr("cart_slots.version + 1"),
			"updated_at": now,
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save slot %q: %w", key, err)
	}
	return nil
}
