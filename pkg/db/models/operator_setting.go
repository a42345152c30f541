package models

import "time"

// OperatorSetting is one JSON-encoded settings document keyed by name.
type OperatorSetting struct {
	Key       string    `gorm:"column:setting_key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (OperatorSetting) TableName() string { return "operator_settings" }
