package services

import (
	"encoding/csv"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"cart_quote_app_go/models"

	"gorm.io/gorm"
)

// exportChunkSize is the page size used when streaming exports; bounds memory
// for arbitrarily large result sets.
const exportChunkSize = 200

// quoteOrderColumns is the allow-list for the orderby filter. Anything else
// silently falls back to created_at; this is the injection defense for the
// one part of the query that cannot be parameter-bound.
var quoteOrderColumns = map[string]bool{
	"id":            true,
	"quote_id":      true,
	"customer_name": true,
	"email":         true,
	"company_name":  true,
	"subtotal":      true,
	"status":        true,
	"created_at":    true,
	"updated_at":    true,
}

var digitsRe = regexp.MustCompile(`\d+`)

// QuoteFilter narrows list/count/export queries. Zero values mean "no
// constraint" for the predicate fields and "use defaults" for sort and
// pagination.
type QuoteFilter struct {
	Status   string // exact match
	Search   string // substring across quote_id, customer_name, email, company_name
	DateFrom string // inclusive, YYYY-MM-DD, on created_at
	DateTo   string // inclusive, YYYY-MM-DD, on created_at
	OrderBy  string
	Order    string // ASC or DESC
	PerPage  int
	Page     int // 1-based
}

// QuoteStatistics summarizes the quotes table for the dashboard
type QuoteStatistics struct {
	Total             int64 `json:"total"`
	Pending           int64 `json:"pending"`
	Contacted         int64 `json:"contacted"`
	Closed            int64 `json:"closed"`
	Canceled          int64 `json:"canceled"`
	MeetingsRequested int64 `json:"meetings_requested"`
	MeetingsScheduled int64 `json:"meetings_scheduled"`
}

// QuoteRepository owns all reads and writes to the quotes and quote_logs
// tables. Persistence failures are logged and surfaced to callers as
// nil/false results, never as a fault that aborts the caller's own work.
type QuoteRepository struct {
	db       *gorm.DB
	settings *Settings
}

// NewQuoteRepository creates a repository over the given database
func NewQuoteRepository(db *gorm.DB, settings *Settings) *QuoteRepository {
	return &QuoteRepository{db: db, settings: settings}
}

// GenerateQuoteID suggests the next business-visible reference: the
// configured prefix plus one past the numeric part of the newest reference,
// or the configured start number for an empty table.
func (r *QuoteRepository) GenerateQuoteID() string {
	prefix := r.settings.QuotePrefix()
	next := r.settings.QuoteStartNumber()

	var last models.Quote
	err := r.db.Select("quote_id").Order("id DESC").First(&last).Error
	if err == nil {
		if m := digitsRe.FindString(last.QuoteID); m != "" {
			var n int
			if _, err := fmt.Sscanf(m, "%d", &n); err == nil {
				next = n + 1
			}
		}
	}

	return fmt.Sprintf("%s%d", prefix, next)
}

// Insert persists a new quote and appends a creation log entry. Returns the
// row id, or 0 with false on failure.
func (r *QuoteRepository) Insert(q *models.Quote) (uint, bool) {
	if q.QuoteID == "" {
		q.QuoteID = r.GenerateQuoteID()
	}
	if q.Status == "" {
		q.Status = r.settings.DefaultStatus()
	}

	if err := r.db.Create(q).Error; err != nil {
		log.Printf("[QUOTES] Insert failed for %s: %v", q.QuoteID, err)
		return 0, false
	}

	r.Log(q.QuoteID, models.QuoteLogCreated, "Quote submitted by customer", 0)
	return q.ID, true
}

// Find fetches a quote by row id, nil when absent
func (r *QuoteRepository) Find(id uint) *models.Quote {
	var q models.Quote
	err := r.db.First(&q, "id = ?", id).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("[QUOTES] Find failed for id %d: %v", id, err)
		}
		return nil
	}
	return &q
}

// FindByQuoteID fetches a quote by its business reference, nil when absent
func (r *QuoteRepository) FindByQuoteID(quoteID string) *models.Quote {
	var q models.Quote
	err := r.db.First(&q, "quote_id = ?", quoteID).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("[QUOTES] Find failed for ref %s: %v", quoteID, err)
		}
		return nil
	}
	return &q
}

// List returns the quotes matching every supplied predicate, sorted and
// paginated per the filter
func (r *QuoteRepository) List(filter QuoteFilter) []models.Quote {
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	var quotes []models.Quote
	err := r.filtered(filter).
		Order(orderClause(filter.OrderBy, filter.Order)).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&quotes).Error
	if err != nil {
		log.Printf("[QUOTES] List failed: %v", err)
		return nil
	}
	return quotes
}

// Count returns the number of quotes matching the filter's predicates
func (r *QuoteRepository) Count(filter QuoteFilter) int64 {
	var total int64
	if err := r.filtered(filter).Count(&total).Error; err != nil {
		log.Printf("[QUOTES] Count failed: %v", err)
		return 0
	}
	return total
}

// recognized update fields, by persistence shape
var (
	quoteStringFields = map[string]bool{
		"customer_name": true, "email": true, "phone": true,
		"company_name": true, "preferred_date": true, "preferred_time": true,
		"contract_duration": true, "status": true, "google_event_id": true,
		"admin_notes": true, "additional_notes": true,
	}
	quoteBoolFields  = map[string]bool{"meeting_requested": true, "calendar_synced": true}
	quoteFloatFields = map[string]bool{"subtotal": true}
)

// Update applies a partial field set to a quote. Unrecognized keys are
// silently dropped; an invalid status rejects the whole update. A fresh
// updated_at is stamped regardless of which fields changed.
func (r *QuoteRepository) Update(id uint, fields map[string]interface{}) bool {
	updates := map[string]interface{}{}

	for key, value := range fields {
		switch {
		case quoteStringFields[key]:
			str, ok := value.(string)
			if !ok {
				continue
			}
			if key == "status" && !models.IsValidQuoteStatus(str) {
				log.Printf("[QUOTES] Rejected update of id %d: invalid status %q", id, str)
				return false
			}
			updates[key] = str
		case quoteBoolFields[key]:
			if b, ok := value.(bool); ok {
				updates[key] = b
			}
		case quoteFloatFields[key]:
			if f, ok := toFloat(value); ok {
				updates[key] = f
			}
		}
	}

	updates["updated_at"] = time.Now().UTC()

	res := r.db.Model(&models.Quote{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		log.Printf("[QUOTES] Update failed for id %d: %v", id, res.Error)
		return false
	}
	if res.RowsAffected == 0 {
		return false
	}

	if q := r.Find(id); q != nil {
		changed := make([]string, 0, len(updates))
		for key := range updates {
			if key != "updated_at" {
				changed = append(changed, key)
			}
		}
		r.Log(q.QuoteID, models.QuoteLogUpdated, "Updated fields: "+strings.Join(changed, ", "), 0)
	}
	return true
}

// UpdateStatus sets a quote's status after validating membership in the
// enumeration. No transition graph is enforced: any status may follow any
// other.
func (r *QuoteRepository) UpdateStatus(id uint, status string, userID uint) bool {
	if !models.IsValidQuoteStatus(status) {
		return false
	}

	q := r.Find(id)
	if q == nil {
		return false
	}
	oldStatus := q.Status

	res := r.db.Model(&models.Quote{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		log.Printf("[QUOTES] Status update failed for id %d: %v", id, res.Error)
		return false
	}

	r.Log(q.QuoteID, models.QuoteLogStatusChanged,
		fmt.Sprintf("Status changed from %s to %s", oldStatus, status), userID)
	return true
}

// SaveGoogleEvent records the external calendar event reference and marks
// the quote synced
func (r *QuoteRepository) SaveGoogleEvent(id uint, eventID string) bool {
	return r.Update(id, map[string]interface{}{
		"google_event_id": eventID,
		"calendar_synced": true,
	})
}

// Delete removes a quote. Returns false for an absent id without raising.
func (r *QuoteRepository) Delete(id uint) bool {
	q := r.Find(id)
	if q == nil {
		return false
	}

	if err := r.db.Delete(&models.Quote{}, "id = ?", id).Error; err != nil {
		log.Printf("[QUOTES] Delete failed for id %d: %v", id, err)
		return false
	}

	r.Log(q.QuoteID, models.QuoteLogDeleted, "Quote deleted", 0)
	return true
}

// Log appends an entry to the quote log. Best effort: a failed log write is
// reported in the return value but never rolls back the primary mutation.
func (r *QuoteRepository) Log(quoteID, action, details string, userID uint) bool {
	entry := models.QuoteLog{
		QuoteID: quoteID,
		Action:  action,
		Details: details,
		UserID:  userID,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		log.Printf("[QUOTES] Log write failed for %s/%s: %v", quoteID, action, err)
		return false
	}
	return true
}

// GetLogs returns a quote's log entries, newest first
func (r *QuoteRepository) GetLogs(quoteID string) []models.QuoteLog {
	var logs []models.QuoteLog
	err := r.db.Where("quote_id = ?", quoteID).Order("created_at DESC").Find(&logs).Error
	if err != nil {
		log.Printf("[QUOTES] Log read failed for %s: %v", quoteID, err)
		return nil
	}
	return logs
}

// Statistics returns per-status counts plus meeting totals
func (r *QuoteRepository) Statistics() QuoteStatistics {
	var stats QuoteStatistics
	count := func(dest *int64, query interface{}, args ...interface{}) {
		q := r.db.Model(&models.Quote{})
		if query != nil {
			q = q.Where(query, args...)
		}
		if err := q.Count(dest).Error; err != nil {
			log.Printf("[QUOTES] Statistics query failed: %v", err)
		}
	}

	count(&stats.Total, nil)
	count(&stats.Pending, "status = ?", models.QuoteStatusPending)
	count(&stats.Contacted, "status = ?", models.QuoteStatusContacted)
	count(&stats.Closed, "status = ?", models.QuoteStatusClosed)
	count(&stats.Canceled, "status = ?", models.QuoteStatusCanceled)
	count(&stats.MeetingsRequested, "meeting_requested = ?", true)
	count(&stats.MeetingsScheduled, "calendar_synced = ?", true)
	return stats
}

// ForEachChunk pages through every quote matching the filter in fixed-size
// chunks, stopping when a chunk comes back short. Pagination settings on the
// filter are ignored.
func (r *QuoteRepository) ForEachChunk(filter QuoteFilter, fn func(quotes []models.Quote) bool) {
	filter.PerPage = exportChunkSize
	for page := 1; ; page++ {
		filter.Page = page
		chunk := r.List(filter)
		if len(chunk) == 0 {
			return
		}
		if !fn(chunk) {
			return
		}
		if len(chunk) < exportChunkSize {
			return
		}
	}
}

// ExportCSV renders every matching quote as CSV, paginating internally to
// bound memory
func (r *QuoteRepository) ExportCSV(filter QuoteFilter) (string, bool) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(exportHeader()); err != nil {
		log.Printf("[QUOTES] CSV export failed: %v", err)
		return "", false
	}

	ok := true
	r.ForEachChunk(filter, func(quotes []models.Quote) bool {
		for i := range quotes {
			if err := w.Write(exportRow(&quotes[i])); err != nil {
				log.Printf("[QUOTES] CSV export failed: %v", err)
				ok = false
				return false
			}
		}
		return true
	})
	if !ok {
		return "", false
	}

	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("[QUOTES] CSV export failed: %v", err)
		return "", false
	}
	return sb.String(), true
}

func exportHeader() []string {
	return []string{
		"Quote ID", "Customer Name", "Email", "Phone", "Company",
		"Preferred Date", "Preferred Time", "Contract Duration",
		"Meeting Requested", "Subtotal", "Status", "Created At",
		"Google Event ID",
	}
}

func exportRow(q *models.Quote) []string {
	meeting := "No"
	if q.MeetingRequested {
		meeting = "Yes"
	}
	return []string{
		q.QuoteID, q.CustomerName, q.Email, q.Phone, q.CompanyName,
		q.PreferredDate, q.PreferredTime, q.ContractDuration,
		meeting, fmt.Sprintf("%.2f", q.Subtotal), q.Status,
		q.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		q.GoogleEventID,
	}
}

// filtered applies the predicate parts of the filter. Every value is bound
// as a query parameter.
func (r *QuoteRepository) filtered(filter QuoteFilter) *gorm.DB {
	query := r.db.Model(&models.Quote{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		term := "%" + escapeLike(filter.Search) + "%"
		query = query.Where(
			`(quote_id LIKE ? ESCAPE '\' OR customer_name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\' OR company_name LIKE ? ESCAPE '\')`,
			term, term, term, term,
		)
	}
	if filter.DateFrom != "" {
		query = query.Where("DATE(created_at) >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		query = query.Where("DATE(created_at) <= ?", filter.DateTo)
	}

	return query
}

// orderClause builds the ORDER BY from the allow-listed column set.
// Unrecognized columns fall back to created_at, unrecognized directions to
// DESC; neither is an error.
func orderClause(orderBy, order string) string {
	column := strings.ToLower(orderBy)
	if !quoteOrderColumns[column] {
		column = "created_at"
	}
	direction := strings.ToUpper(order)
	if direction != "ASC" && direction != "DESC" {
		direction = "DESC"
	}
	return column + " " + direction
}

// escapeLike neutralizes LIKE wildcards in user-supplied search terms
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
