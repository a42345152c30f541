package session

import (
	"context"
	"time"

	"github.com/angelmondragon/eltafawook-admin/internal/repo"
	"github.com/angelmondragon/eltafawook-admin/pkg/db/models"
	"gorm.io/gorm"
)

// DefaultProfile is the single operator profile of a local install.
const DefaultProfile = "default"

// Repository persists the remembered token and the admin's saved branch.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Load returns the remembered row for profile, nil when none exists.
func (r *Repository) Load(ctx context.Context, profile string) (*models.RememberedSession, error) {
	var row models.RememberedSession
	found, err := r.First(ctx, &row, "profile = ?", profile)
	if err != nil || !found {
		return nil, err
	}
	return &row, nil
}

// SaveToken remembers token for profile, keeping any saved branch.
func (r *Repository) SaveToken(ctx context.Context, profile, username, token string) error {
	row := models.RememberedSession{
		Profile:     profile,
		AccessToken: token,
		Username:    username,
		UpdatedAt:   time.Now().UTC(),
	}
	return r.Upsert(ctx, &row, "profile", "access_token", "username", "updated_at")
}

// SaveBranch remembers the branch an admin last selected.
func (r *Repository) SaveBranch(ctx context.Context, profile string, branch Branch) error {
	row := models.RememberedSession{
		Profile:         profile,
		SavedBranchID:   branch.ID,
		SavedBranchCode: branch.Code,
		UpdatedAt:       time.Now().UTC(),
	}
	return r.Upsert(ctx, &row, "profile", "saved_branch_id", "saved_branch_code", "updated_at")
}

// ForgetToken drops the remembered token; the saved branch stays.
func (r *Repository) ForgetToken(ctx context.Context, profile string) error {
	return r.DB(ctx).
		Model(&models.RememberedSession{}).
		Where("profile = ?", profile).
		Updates(map[string]any{"access_token": "", "updated_at": time.Now().UTC()}).Error
}
