package services

import (
	"strings"
	"testing"
	"time"

	"cart_quote_app_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupQuoteTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(&models.Quote{}, &models.QuoteLog{}, &models.Option{})
	return db
}

func newTestRepo(t *testing.T) (*QuoteRepository, *gorm.DB) {
	t.Helper()
	db := setupQuoteTestDB()
	return NewQuoteRepository(db, NewSettings(db)), db
}

func makeQuote(name, email, company string) *models.Quote {
	return &models.Quote{
		CustomerName: name,
		Email:        email,
		CompanyName:  company,
	}
}

func TestGenerateQuoteID(t *testing.T) {
	repo, _ := newTestRepo(t)

	// Empty table uses the configured start number
	assert.Equal(t, "Q1001", repo.GenerateQuoteID())

	_, ok := repo.Insert(makeQuote("Alice", "alice@example.com", ""))
	assert.True(t, ok)

	assert.Equal(t, "Q1002", repo.GenerateQuoteID())
}

func TestGenerateQuoteID_CustomPrefix(t *testing.T) {
	repo, db := newTestRepo(t)
	settings := NewSettings(db)
	settings.Set(OptQuotePrefix, "ACME-")
	settings.Set(OptQuoteStartNumber, "500")

	assert.Equal(t, "ACME-500", repo.GenerateQuoteID())

	_, ok := repo.Insert(makeQuote("Bob", "bob@example.com", ""))
	assert.True(t, ok)

	assert.Equal(t, "ACME-501", repo.GenerateQuoteID())
}

func TestInsertDefaultsAndLog(t *testing.T) {
	repo, _ := newTestRepo(t)

	q := makeQuote("Alice", "alice@example.com", "Acme")
	id, ok := repo.Insert(q)
	assert.True(t, ok)
	assert.NotZero(t, id)
	assert.Equal(t, models.QuoteStatusPending, q.Status)
	assert.Equal(t, "Q1001", q.QuoteID)

	logs := repo.GetLogs(q.QuoteID)
	assert.Len(t, logs, 1)
	assert.Equal(t, models.QuoteLogCreated, logs[0].Action)
}

func TestInsertDuplicateReferenceFails(t *testing.T) {
	repo, _ := newTestRepo(t)

	first := makeQuote("Alice", "alice@example.com", "")
	first.QuoteID = "Q9000"
	_, ok := repo.Insert(first)
	assert.True(t, ok)

	dup := makeQuote("Bob", "bob@example.com", "")
	dup.QuoteID = "Q9000"
	_, ok = repo.Insert(dup)
	assert.False(t, ok)
}

func TestFind(t *testing.T) {
	repo, _ := newTestRepo(t)

	q := makeQuote("Alice", "alice@example.com", "")
	id, _ := repo.Insert(q)

	found := repo.Find(id)
	assert.NotNil(t, found)
	assert.Equal(t, "Alice", found.CustomerName)

	assert.Nil(t, repo.Find(99999))
	assert.NotNil(t, repo.FindByQuoteID(q.QuoteID))
	assert.Nil(t, repo.FindByQuoteID("NOPE"))
}

func TestListFilterStatus(t *testing.T) {
	repo, _ := newTestRepo(t)

	a := makeQuote("Alice", "alice@example.com", "")
	repo.Insert(a)
	b := makeQuote("Bob", "bob@example.com", "")
	id, _ := repo.Insert(b)
	repo.UpdateStatus(id, models.QuoteStatusContacted, 0)

	got := repo.List(QuoteFilter{Status: models.QuoteStatusContacted})
	assert.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].CustomerName)

	assert.Equal(t, int64(2), repo.Count(QuoteFilter{}))
	assert.Equal(t, int64(1), repo.Count(QuoteFilter{Status: models.QuoteStatusPending}))
}

func TestListSearchMatchesAllColumns(t *testing.T) {
	repo, _ := newTestRepo(t)

	repo.Insert(makeQuote("Alice Smith", "alice@example.com", "Wonder Corp"))
	repo.Insert(makeQuote("Bob Jones", "bob@other.net", "Acme"))

	assert.Len(t, repo.List(QuoteFilter{Search: "wonder"}), 1)
	assert.Len(t, repo.List(QuoteFilter{Search: "bob@other"}), 1)
	assert.Len(t, repo.List(QuoteFilter{Search: "Smith"}), 1)
	assert.Len(t, repo.List(QuoteFilter{Search: "Q100"}), 2)
	assert.Len(t, repo.List(QuoteFilter{Search: "zzz"}), 0)
}

func TestListSearchEscapesWildcards(t *testing.T) {
	repo, _ := newTestRepo(t)

	repo.Insert(makeQuote("100% Cotton", "cotton@example.com", ""))
	repo.Insert(makeQuote("Plain", "plain@example.com", ""))

	// A literal % must not act as a wildcard
	got := repo.List(QuoteFilter{Search: "100%"})
	assert.Len(t, got, 1)
	assert.Equal(t, "100% Cotton", got[0].CustomerName)

	assert.Len(t, repo.List(QuoteFilter{Search: "P%n"}), 0)
	assert.Len(t, repo.List(QuoteFilter{Search: "P_ain"}), 0)
}

func TestListDateRangeInclusive(t *testing.T) {
	repo, db := newTestRepo(t)

	old := makeQuote("Old", "old@example.com", "")
	repo.Insert(old)
	db.Model(&models.Quote{}).Where("id = ?", old.ID).
		Update("created_at", time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))

	repo.Insert(makeQuote("Recent", "recent@example.com", ""))

	got := repo.List(QuoteFilter{DateFrom: "2026-01-01", DateTo: "2026-01-15"})
	assert.Len(t, got, 1)
	assert.Equal(t, "Old", got[0].CustomerName)

	assert.Len(t, repo.List(QuoteFilter{DateFrom: "2026-01-16"}), 1)
}

func TestListOrderFallbacks(t *testing.T) {
	repo, _ := newTestRepo(t)

	repo.Insert(makeQuote("Bravo", "b@example.com", ""))
	repo.Insert(makeQuote("Alpha", "a@example.com", ""))

	got := repo.List(QuoteFilter{OrderBy: "customer_name", Order: "ASC"})
	assert.Equal(t, "Alpha", got[0].CustomerName)

	// Unrecognized column and direction fall back instead of erroring
	got = repo.List(QuoteFilter{OrderBy: "customer_name; DROP TABLE quote_submissions", Order: "sideways"})
	assert.Len(t, got, 2)

	var count int64
	repo.db.Model(&models.Quote{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestListPagination(t *testing.T) {
	repo, _ := newTestRepo(t)

	for i := 0; i < 5; i++ {
		repo.Insert(makeQuote("Customer", "c@example.com", ""))
	}

	assert.Len(t, repo.List(QuoteFilter{PerPage: 2, Page: 1}), 2)
	assert.Len(t, repo.List(QuoteFilter{PerPage: 2, Page: 3}), 1)
	assert.Len(t, repo.List(QuoteFilter{PerPage: 2, Page: 4}), 0)

	// Out-of-range values clamp to defaults
	assert.Len(t, repo.List(QuoteFilter{PerPage: -1, Page: -7}), 5)
}

func TestUpdateRecognizedFieldsOnly(t *testing.T) {
	repo, _ := newTestRepo(t)

	q := makeQuote("Alice", "alice@example.com", "")
	id, _ := repo.Insert(q)

	ok := repo.Update(id, map[string]interface{}{
		"admin_notes":     "called twice",
		"quote_id":        "HACKED",
		"subtotal":        150.50,
		"calendar_synced": true,
	})
	assert.True(t, ok)

	updated := repo.Find(id)
	assert.Equal(t, "called twice", updated.AdminNotes)
	assert.Equal(t, q.QuoteID, updated.QuoteID)
	assert.Equal(t, 150.50, updated.Subtotal)
	assert.True(t, updated.CalendarSynced)
}

func TestUpdateInvalidStatusRejected(t *testing.T) {
	repo, _ := newTestRepo(t)

	id, _ := repo.Insert(makeQuote("Alice", "alice@example.com", ""))

	ok := repo.Update(id, map[string]interface{}{
		"status":      "bogus",
		"admin_notes": "should not land",
	})
	assert.False(t, ok)

	q := repo.Find(id)
	assert.Equal(t, models.QuoteStatusPending, q.Status)
	assert.Empty(t, q.AdminNotes)
}

func TestUpdateMissingQuote(t *testing.T) {
	repo, _ := newTestRepo(t)
	assert.False(t, repo.Update(424242, map[string]interface{}{"admin_notes": "x"}))
}

func TestUpdateStatusLogsTransition(t *testing.T) {
	repo, _ := newTestRepo(t)

	q := makeQuote("Alice", "alice@example.com", "")
	id, _ := repo.Insert(q)

	assert.True(t, repo.UpdateStatus(id, models.QuoteStatusClosed, 7))
	assert.False(t, repo.UpdateStatus(id, "bogus", 7))
	assert.False(t, repo.UpdateStatus(99999, models.QuoteStatusClosed, 7))

	logs := repo.GetLogs(q.QuoteID)
	var found bool
	for _, entry := range logs {
		if entry.Action == models.QuoteLogStatusChanged {
			found = true
			assert.Contains(t, entry.Details, "pending")
			assert.Contains(t, entry.Details, "closed")
			assert.Equal(t, uint(7), entry.UserID)
		}
	}
	assert.True(t, found)
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepo(t)

	q := makeQuote("Alice", "alice@example.com", "")
	id, _ := repo.Insert(q)

	assert.True(t, repo.Delete(id))
	assert.Nil(t, repo.Find(id))
	assert.False(t, repo.Delete(id))

	// History outlives the quote
	logs := repo.GetLogs(q.QuoteID)
	assert.Len(t, logs, 2)
	assert.Equal(t, models.QuoteLogDeleted, logs[0].Action)
}

func TestSaveGoogleEvent(t *testing.T) {
	repo, _ := newTestRepo(t)

	id, _ := repo.Insert(makeQuote("Alice", "alice@example.com", ""))
	assert.True(t, repo.SaveGoogleEvent(id, "evt_abc123"))

	q := repo.Find(id)
	assert.Equal(t, "evt_abc123", q.GoogleEventID)
	assert.True(t, q.CalendarSynced)
}

func TestStatistics(t *testing.T) {
	repo, _ := newTestRepo(t)

	a := makeQuote("A", "a@example.com", "")
	a.MeetingRequested = true
	idA, _ := repo.Insert(a)
	repo.SaveGoogleEvent(idA, "evt_1")

	b := makeQuote("B", "b@example.com", "")
	idB, _ := repo.Insert(b)
	repo.UpdateStatus(idB, models.QuoteStatusCanceled, 0)

	stats := repo.Statistics()
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Canceled)
	assert.Equal(t, int64(0), stats.Contacted)
	assert.Equal(t, int64(1), stats.MeetingsRequested)
	assert.Equal(t, int64(1), stats.MeetingsScheduled)
}

func TestExportCSV(t *testing.T) {
	repo, _ := newTestRepo(t)

	q := makeQuote(`Alice "Quotes"`, "alice@example.com", "Acme, Inc")
	q.Subtotal = 99.9
	repo.Insert(q)

	out, ok := repo.ExportCSV(QuoteFilter{})
	assert.True(t, ok)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Quote ID")
	assert.Contains(t, out, `"Alice ""Quotes"""`)
	assert.Contains(t, out, `"Acme, Inc"`)
	assert.Contains(t, out, "99.90")
}

func TestExportCSVChunksAcrossPages(t *testing.T) {
	repo, _ := newTestRepo(t)

	for i := 0; i < exportChunkSize+5; i++ {
		repo.Insert(makeQuote("Bulk", "bulk@example.com", ""))
	}

	out, ok := repo.ExportCSV(QuoteFilter{})
	assert.True(t, ok)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, exportChunkSize+6)
}

func TestLogBestEffort(t *testing.T) {
	repo, db := newTestRepo(t)

	assert.True(t, repo.Log("Q1", "created", "detail", 0))

	// A broken log table must not surface as a failure of the mutation path
	db.Migrator().DropTable(&models.QuoteLog{})
	assert.False(t, repo.Log("Q1", "created", "detail", 0))

	q := makeQuote("Alice", "alice@example.com", "")
	_, ok := repo.Insert(q)
	assert.True(t, ok)
}

func TestQuoteItemsRoundTrip(t *testing.T) {
	q := &models.Quote{}
	items := []models.QuoteItem{
		{ProductID: 1, ProductName: "Widget", Quantity: 3, Price: 10, LineTotal: 30},
	}
	assert.NoError(t, q.SetItems(items))
	assert.Equal(t, items, q.Items())

	q.CartData = "{not json"
	assert.Nil(t, q.Items())
}
