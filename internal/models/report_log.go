package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	ReportKindTiming = "timing"
	ReportKindGeo    = "geo"
)

// ReportLog is the audit record persisted for every delivered report.
type ReportLog struct {
	ID           string        `gorm:"primaryKey" json:"id"`
	Kind         string        `gorm:"index" json:"kind"` // "timing" or "geo"
	RequestedBy  int64         `json:"requested_by"`      // Telegram user ID, 0 for API calls
	TargetChatID int64         `json:"target_chat_id"`
	Destination  string        `json:"destination,omitempty"` // "lat,lon" for timing reports
	EntryCount   int           `json:"entry_count"`
	ErrorCount   int           `json:"error_count"`
	UserIDs      pq.Int64Array `gorm:"type:bigint[]" json:"user_ids"`
	Body         string        `gorm:"type:text" json:"body"`
	CreatedAt    time.Time     `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (r *ReportLog) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
