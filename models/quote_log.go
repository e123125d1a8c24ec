package models

import "time"

// Quote log action tags
const (
	QuoteLogCreated            = "created"
	QuoteLogUpdated            = "updated"
	QuoteLogStatusChanged      = "status_changed"
	QuoteLogDeleted            = "deleted"
	QuoteLogEmailsSent         = "emails_sent"
	QuoteLogAdminEmailSent     = "admin_email_sent"
	QuoteLogClientEmailSent    = "client_email_sent"
	QuoteLogGoogleEventCreated = "google_event_created"
	QuoteLogGoogleMeetCreated  = "google_meet_created"
)

// QuoteLog is an append-only record of an action performed on a quote.
// Entries are never updated; the daily cleanup job bulk-purges old ones.
type QuoteLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// References the business-visible quote reference, not the row id, so
	// history survives quote deletion.
	QuoteID string `gorm:"size:32;index;not null" json:"quote_id"`

	Action  string `gorm:"size:64;not null" json:"action"`
	Details string `gorm:"type:text" json:"details,omitempty"`
	UserID  uint   `json:"user_id"`
}

// TableName specifies the table name for the QuoteLog model
func (QuoteLog) TableName() string {
	return "quote_logs"
}
