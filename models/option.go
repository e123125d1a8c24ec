package models

import "time"

// Option is a single persisted configuration value. Options have a lifecycle
// independent from quotes: seeded with defaults at startup, read and written
// at runtime, and removed by the purge command.
type Option struct {
	Key       string    `gorm:"primarykey;size:191" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Option model
func (Option) TableName() string {
	return "quote_options"
}
