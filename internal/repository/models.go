package repository

import "time"

// KVEntryModel is the persistence model for the kv_entries table.
type KVEntryModel struct {
	Key       string `gorm:"column:entry_key;type:varchar(255);primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (KVEntryModel) TableName() string {
	return "kv_entries"
}
