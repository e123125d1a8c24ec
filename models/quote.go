package models

import (
	"encoding/json"
	"time"
)

// Quote status constants. The status set is a free enumeration: any status
// can be set from any other, only membership is validated.
const (
	QuoteStatusPending   = "pending"
	QuoteStatusContacted = "contacted"
	QuoteStatusClosed    = "closed"
	QuoteStatusCanceled  = "canceled"
)

// Contract duration options offered on the quote form
const (
	ContractDuration1Month  = "1_month"
	ContractDuration3Months = "3_months"
	ContractDuration6Months = "6_months"
)

// Quote represents a customer quote submission built from a cart
type Quote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Business-visible reference, e.g. Q1001. Immutable after creation.
	QuoteID string `gorm:"size:32;uniqueIndex;not null" json:"quote_id"`

	// Contact information
	CustomerName string `gorm:"size:200;not null" json:"customer_name"`
	Email        string `gorm:"size:255;not null;index" json:"email"`
	Phone        string `gorm:"size:50" json:"phone"`
	CompanyName  string `gorm:"size:200" json:"company_name"`

	// Scheduling preferences
	PreferredDate    string `gorm:"size:10" json:"preferred_date"` // YYYY-MM-DD
	PreferredTime    string `gorm:"size:5" json:"preferred_time"`  // HH:MM
	ContractDuration string `gorm:"size:20" json:"contract_duration"`
	MeetingRequested bool   `json:"meeting_requested"`

	// Cart snapshot, serialized as JSON
	CartData string  `gorm:"type:text" json:"-"`
	Subtotal float64 `gorm:"type:decimal(10,2)" json:"subtotal"`

	// Notes
	AdditionalNotes string `gorm:"type:text" json:"additional_notes,omitempty"`
	AdminNotes      string `gorm:"type:text" json:"admin_notes,omitempty"`

	// Workflow
	Status string `gorm:"size:20;default:'pending';index" json:"status"`

	// Google Calendar sync
	GoogleEventID  string `gorm:"size:255" json:"google_event_id,omitempty"`
	CalendarSynced bool   `json:"calendar_synced"`
}

// TableName specifies the table name for the Quote model
func (Quote) TableName() string {
	return "quote_submissions"
}

// QuoteItem is one cart line item frozen into the quote payload
type QuoteItem struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	LineTotal   float64 `json:"line_total"`
}

// Items decodes the serialized cart payload. A malformed payload yields an
// empty slice rather than an error; the raw text stays untouched in CartData.
func (q *Quote) Items() []QuoteItem {
	if q.CartData == "" {
		return nil
	}
	var items []QuoteItem
	if err := json.Unmarshal([]byte(q.CartData), &items); err != nil {
		return nil
	}
	return items
}

// SetItems serializes the cart payload into CartData
func (q *Quote) SetItems(items []QuoteItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	q.CartData = string(data)
	return nil
}

// IsValidQuoteStatus checks if the status is part of the enumeration
func IsValidQuoteStatus(status string) bool {
	switch status {
	case QuoteStatusPending, QuoteStatusContacted, QuoteStatusClosed, QuoteStatusCanceled:
		return true
	}
	return false
}

// IsValidContractDuration checks if the duration is a recognized option.
// Empty is allowed (the field is optional on the form).
func IsValidContractDuration(duration string) bool {
	switch duration {
	case "", ContractDuration1Month, ContractDuration3Months, ContractDuration6Months:
		return true
	}
	return false
}
