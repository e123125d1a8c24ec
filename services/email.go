package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cart_quote_app_go/config"
	"cart_quote_app_go/models"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To          []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Attachment is a file attached to an outgoing email
type Attachment struct {
	Filename string
	Content  []byte
}

// QuoteEmailData is the template payload for quote notification emails
type QuoteEmailData struct {
	Quote    *models.Quote
	Items    []models.QuoteItem
	Subtotal string
	AppURL   string
}

// EmailService builds and sends the quote notification emails
type EmailService struct {
	cfg      *config.Config
	settings *Settings
	repo     *QuoteRepository
	pdf      *PDFService

	// TemplatesDir is overridable for tests
	TemplatesDir string
}

// NewEmailService creates an email service
func NewEmailService(cfg *config.Config, settings *Settings, repo *QuoteRepository) *EmailService {
	return &EmailService{
		cfg:          cfg,
		settings:     settings,
		repo:         repo,
		pdf:          NewPDFService(),
		TemplatesDir: "templates/emails",
	}
}

// ParseSubject substitutes the recognized placeholders in a subject template.
// Unrecognized placeholders are left verbatim.
func ParseSubject(subject string, q *models.Quote) string {
	return strings.NewReplacer(
		"{quote_id}", q.QuoteID,
		"{customer_name}", q.CustomerName,
		"{company_name}", q.CompanyName,
		"{status}", q.Status,
	).Replace(subject)
}

// SendQuoteEmails sends the admin notification and the client confirmation
// for a fresh submission, each gated by its settings toggle. A failure on one
// side does not stop the other; one log entry records the batch.
func (s *EmailService) SendQuoteEmails(q *models.Quote) {
	sent := []string{}

	if s.settings.SendToAdmin() {
		if err := s.sendAdmin(q); err != nil {
			log.Printf("[EMAIL] Admin notification failed for %s: %v", q.QuoteID, err)
		} else {
			sent = append(sent, "admin")
		}
	}
	if s.settings.SendToClient() {
		if err := s.sendClient(q); err != nil {
			log.Printf("[EMAIL] Client confirmation failed for %s: %v", q.QuoteID, err)
		} else {
			sent = append(sent, "client")
		}
	}

	if len(sent) > 0 {
		s.repo.Log(q.QuoteID, models.QuoteLogEmailsSent, "Sent: "+strings.Join(sent, ", "), 0)
	}
}

// SendAdminEmail resends the admin notification for an existing quote
func (s *EmailService) SendAdminEmail(q *models.Quote) error {
	if err := s.sendAdmin(q); err != nil {
		return err
	}
	s.repo.Log(q.QuoteID, models.QuoteLogAdminEmailSent, "Admin notification resent", 0)
	return nil
}

// SendClientEmail resends the client confirmation for an existing quote
func (s *EmailService) SendClientEmail(q *models.Quote) error {
	if err := s.sendClient(q); err != nil {
		return err
	}
	s.repo.Log(q.QuoteID, models.QuoteLogClientEmailSent, "Client confirmation resent", 0)
	return nil
}

func (s *EmailService) sendAdmin(q *models.Quote) error {
	to := s.settings.AdminEmail()
	if to == "" {
		return fmt.Errorf("admin email not configured")
	}

	email, err := s.buildEmail("admin_notification", q, to)
	if err != nil {
		return err
	}
	email.Subject = ParseSubject(s.settings.EmailSubjectAdmin(), q)
	return s.Send(email)
}

func (s *EmailService) sendClient(q *models.Quote) error {
	if q.Email == "" {
		return fmt.Errorf("quote has no customer email")
	}

	email, err := s.buildEmail("client_confirmation", q, q.Email)
	if err != nil {
		return err
	}
	email.Subject = ParseSubject(s.settings.EmailSubjectClient(), q)

	// PDF attachment is best effort; the confirmation still goes out when
	// Chrome is unavailable
	if s.settings.IsPDFEnabled() {
		if pdf, err := s.pdf.GenerateQuotePDF(q); err != nil {
			log.Printf("[EMAIL] PDF attachment failed for %s: %v", q.QuoteID, err)
		} else {
			email.Attachments = append(email.Attachments, Attachment{
				Filename: q.QuoteID + ".pdf",
				Content:  pdf,
			})
		}
	}
	return s.Send(email)
}

func (s *EmailService) buildEmail(templateName string, q *models.Quote, to string) (*Email, error) {
	data := QuoteEmailData{
		Quote:    q,
		Items:    q.Items(),
		Subtotal: fmt.Sprintf("%.2f", q.Subtotal),
		AppURL:   s.cfg.AppURL,
	}

	htmlBody, textBody, err := s.loadTemplate(templateName, data)
	if err != nil {
		return nil, err
	}

	return &Email{
		To:       []string{to},
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}

// loadTemplate loads and executes templateName + ".html" and ".txt" from the
// templates directory. The HTML fragment is wrapped in the shared layout.html
// before transport; the text body goes out as rendered.
func (s *EmailService) loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	loadAndExec := func(ext string) (string, error) {
		path := filepath.Join(s.TemplatesDir, templateName+ext)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %v", path, err)
		}

		tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %v", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to execute template %s: %v", path, err)
		}
		return buf.String(), nil
	}

	htmlContent, err := loadAndExec(".html")
	if err != nil {
		return "", "", err
	}
	htmlContent, err = s.wrapInLayout(htmlContent)
	if err != nil {
		return "", "", err
	}

	textContent, err := loadAndExec(".txt")
	if err != nil {
		return "", "", err
	}

	return htmlContent, textContent, nil
}

// wrapInLayout embeds a rendered fragment into the shared email layout. The
// fragment is already escaped output, so it is inserted as trusted HTML.
func (s *EmailService) wrapInLayout(fragment string) (string, error) {
	path := filepath.Join(s.TemplatesDir, "layout.html")
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read layout %s: %v", path, err)
	}

	tmpl, err := template.New("layout.html").Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse layout %s: %v", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Body template.HTML }{template.HTML(fragment)}); err != nil {
		return "", fmt.Errorf("failed to execute layout %s: %v", path, err)
	}
	return buf.String(), nil
}

// Send sends an email using the Resend API. In test mode the email is logged
// to the console instead.
func (s *EmailService) Send(email *Email) error {
	if s.cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if s.cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(s.cfg.ResendAPIKey)
	fromAddress := fmt.Sprintf("%s <%s>", s.cfg.EmailFromName, s.cfg.EmailFrom)

	params := &resend.SendEmailRequest{
		From:    fromAddress,
		To:      email.To,
		Subject: email.Subject,
	}
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}
	for _, a := range email.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
		})
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %v", err)
	}

	log.Printf("Email sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// SendQuoteEmailsAsync dispatches the submission emails in a goroutine so the
// HTTP response is not blocked on the email provider
func (s *EmailService) SendQuoteEmailsAsync(q *models.Quote) {
	quote := *q
	go s.SendQuoteEmails(&quote)
}

func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (test mode, not sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	for _, a := range email.Attachments {
		log.Printf("Attachment: %s (%d bytes)", a.Filename, len(a.Content))
	}
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("\n--- HTML BODY (first 500 chars) ---\n%s...", truncate(email.HTMLBody, 500))
	log.Printf("%s\n", separator)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
