package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base is embedded by the local repositories (settings, remembered session).
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx; a nil ctx yields the raw connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Upsert inserts row or, on a conflict over key, overwrites only the listed columns.
func (b Base) Upsert(ctx context.Context, row any, key string, columns ...string) error {
	return b.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}

// First loads the row matching where into dest; found is false when none exists.
func (b Base) First(ctx context.Context, dest any, where string, args ...any) (bool, error) {
	err := b.DB(ctx).Where(where, args...).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
