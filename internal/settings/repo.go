package settings

import (
	"context"
	"time"

	"github.com/angelmondragon/eltafawook-admin/internal/repo"
	"github.com/angelmondragon/eltafawook-admin/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists named settings documents.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Get returns the raw document for key; ok is false when nothing is stored.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.OperatorSetting
	found, err := r.First(ctx, &row, "setting_key = ?", key)
	if err != nil || !found {
		return "", false, err
	}
	return row.Value, true, nil
}

// Put upserts the raw document for key.
func (r *Repository) Put(ctx context.Context, key, value string) error {
	row := models.OperatorSetting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return r.Upsert(ctx, &row, "setting_key", "value", "updated_at")
}
