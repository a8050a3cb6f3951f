package models

import "time"

// Preference keys.
const (
	PrefLocationID    = "location_id"
	PrefTermsAccepted = "terms_accepted"
)

// Preference is a key/value setting kept in the local store.
type Preference struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// Activity levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Activity is one toast shown to an operator, kept as a history.
type Activity struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Level      string `gorm:"size:16;not null;index"`
	Text       string `gorm:"type:text"`
	LocationID string `gorm:"size:64;index"`
	Seen       bool   `gorm:"default:false;index"`
	CreatedAt  time.Time
}
