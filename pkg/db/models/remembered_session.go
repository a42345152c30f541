package models

import "time"

// RememberedSession backs "remember me": the last token and, for admins,
// the branch they last selected.
type RememberedSession struct {
	Profile         string    `gorm:"column:profile;primaryKey"`
	AccessToken     string    `gorm:"column:access_token;not null"`
	Username        string    `gorm:"column:username"`
	SavedBranchID   string    `gorm:"column:saved_branch_id"`
	SavedBranchCode string    `gorm:"column:saved_branch_code"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null"`
}

func (RememberedSession) TableName() string { return "remembered_sessions" }
