package services

import (
	"os"
	"path/filepath"
	"testing"

	"cart_quote_app_go/config"
	"cart_quote_app_go/models"

	"github.com/stretchr/testify/assert"
)

func newTestEmailService(t *testing.T) (*EmailService, *QuoteRepository) {
	t.Helper()
	db := setupQuoteTestDB()
	settings := NewSettings(db)
	settings.SeedDefaults()
	settings.Set(OptAdminEmail, "admin@example.com")
	repo := NewQuoteRepository(db, settings)

	svc := NewEmailService(&config.Config{
		EmailTestMode: true,
		AppURL:        "http://localhost:8080",
		EmailFrom:     "noreply@example.com",
		EmailFromName: "Quotes",
	}, settings, repo)
	svc.TemplatesDir = t.TempDir()
	layout := `<div class="shell">{{.Body}}</div>`
	assert.NoError(t, os.WriteFile(filepath.Join(svc.TemplatesDir, "layout.html"), []byte(layout), 0644))
	return svc, repo
}

func writeTestTemplates(t *testing.T, dir, name, html, text string) {
	t.Helper()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, name+".html"), []byte(html), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(text), 0644))
}

func TestParseSubject(t *testing.T) {
	q := &models.Quote{
		QuoteID:      "Q1001",
		CustomerName: "Alice",
		CompanyName:  "Acme",
		Status:       models.QuoteStatusPending,
	}

	got := ParseSubject("New quote #{quote_id} from {customer_name} ({company_name}) [{status}]", q)
	assert.Equal(t, "New quote #Q1001 from Alice (Acme) [pending]", got)

	// Unrecognized placeholders stay verbatim
	assert.Equal(t, "Hello {unknown} Q1001", ParseSubject("Hello {unknown} {quote_id}", q))
	assert.Equal(t, "plain subject", ParseSubject("plain subject", q))
}

func TestLoadTemplate(t *testing.T) {
	svc, _ := newTestEmailService(t)
	writeTestTemplates(t, svc.TemplatesDir, "greeting",
		"<p>Hello {{.Quote.CustomerName}}</p>", "Hello {{.Quote.CustomerName}}")

	data := QuoteEmailData{Quote: &models.Quote{CustomerName: "Alice"}}
	html, text, err := svc.loadTemplate("greeting", data)
	assert.NoError(t, err)
	assert.Contains(t, html, "<p>Hello Alice</p>")
	assert.Contains(t, text, "Hello Alice")

	// The HTML body is wrapped in the shared layout, the text body is not
	assert.Contains(t, html, `<div class="shell">`)
	assert.NotContains(t, text, "shell")

	_, _, err = svc.loadTemplate("missing", data)
	assert.Error(t, err)
}

func TestLoadTemplateRequiresLayout(t *testing.T) {
	svc, _ := newTestEmailService(t)
	writeTestTemplates(t, svc.TemplatesDir, "greeting", "<p>hi</p>", "hi")
	assert.NoError(t, os.Remove(filepath.Join(svc.TemplatesDir, "layout.html")))

	_, _, err := svc.loadTemplate("greeting", QuoteEmailData{Quote: &models.Quote{}})
	assert.Error(t, err)
}

func TestSendQuoteEmails(t *testing.T) {
	svc, repo := newTestEmailService(t)
	writeTestTemplates(t, svc.TemplatesDir, "admin_notification",
		"<p>{{.Quote.QuoteID}}</p>", "{{.Quote.QuoteID}}")
	writeTestTemplates(t, svc.TemplatesDir, "client_confirmation",
		"<p>{{.Quote.QuoteID}}</p>", "{{.Quote.QuoteID}}")

	q := makeQuote("Alice", "alice@example.com", "")
	repo.Insert(q)

	svc.SendQuoteEmails(q)

	logs := repo.GetLogs(q.QuoteID)
	var batch *models.QuoteLog
	for i := range logs {
		if logs[i].Action == models.QuoteLogEmailsSent {
			batch = &logs[i]
		}
	}
	assert.NotNil(t, batch)
	assert.Contains(t, batch.Details, "admin")
	assert.Contains(t, batch.Details, "client")
}

func TestSendQuoteEmailsRespectsToggles(t *testing.T) {
	svc, repo := newTestEmailService(t)
	writeTestTemplates(t, svc.TemplatesDir, "admin_notification", "a", "a")
	writeTestTemplates(t, svc.TemplatesDir, "client_confirmation", "c", "c")
	svc.settings.Set(OptSendToAdmin, "0")
	svc.settings.Set(OptSendToClient, "0")

	q := makeQuote("Alice", "alice@example.com", "")
	repo.Insert(q)

	svc.SendQuoteEmails(q)

	for _, entry := range repo.GetLogs(q.QuoteID) {
		assert.NotEqual(t, models.QuoteLogEmailsSent, entry.Action)
	}
}

func TestSendAdminEmailRequiresRecipient(t *testing.T) {
	svc, repo := newTestEmailService(t)
	svc.settings.Delete(OptAdminEmail)

	q := makeQuote("Alice", "alice@example.com", "")
	repo.Insert(q)

	assert.Error(t, svc.SendAdminEmail(q))
}

func TestSendClientEmailLogsResend(t *testing.T) {
	svc, repo := newTestEmailService(t)
	writeTestTemplates(t, svc.TemplatesDir, "client_confirmation",
		"<p>{{.Quote.QuoteID}}</p>", "{{.Quote.QuoteID}}")

	q := makeQuote("Alice", "alice@example.com", "")
	repo.Insert(q)

	assert.NoError(t, svc.SendClientEmail(q))

	var found bool
	for _, entry := range repo.GetLogs(q.QuoteID) {
		if entry.Action == models.QuoteLogClientEmailSent {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSendRequiresAPIKeyOutsideTestMode(t *testing.T) {
	svc, _ := newTestEmailService(t)
	svc.cfg.EmailTestMode = false

	err := svc.Send(&Email{To: []string{"x@example.com"}, Subject: "s", TextBody: "b"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY")
}

func TestShippedTemplatesParse(t *testing.T) {
	svc, repo := newTestEmailService(t)
	svc.TemplatesDir = "../templates/emails"

	q := makeQuote("Alice", "alice@example.com", "Acme")
	q.SetItems([]models.QuoteItem{
		{ProductID: 1, ProductName: "Widget", Quantity: 2, Price: 10, LineTotal: 20},
	})
	q.Subtotal = 20
	repo.Insert(q)

	for _, name := range []string{"admin_notification", "client_confirmation"} {
		email, err := svc.buildEmail(name, q, "x@example.com")
		assert.NoError(t, err)
		assert.Contains(t, email.HTMLBody, "Widget")
		assert.Contains(t, email.TextBody, "Widget")
	}
}
