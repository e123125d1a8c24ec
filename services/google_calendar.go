package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cart_quote_app_go/config"
	"cart_quote_app_go/models"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var (
	// ErrGoogleNotConfigured indicates no OAuth client credentials are stored
	ErrGoogleNotConfigured = errors.New("google integration not configured")
	// ErrGoogleNotConnected indicates no token set is stored
	ErrGoogleNotConnected = errors.New("google account not connected")
	// ErrInvalidOAuthState indicates the callback state did not match
	ErrInvalidOAuthState = errors.New("invalid oauth state")
)

// GoogleCalendarService handles the OAuth flow and calendar event creation
// for quote meetings. Client credentials and tokens live in the options
// table so administrators can manage the connection at runtime.
type GoogleCalendarService struct {
	cfg      *config.Config
	settings *Settings
	repo     *QuoteRepository

	// Overridable for tests
	endpoint    oauth2.Endpoint
	apiEndpoint string
}

// NewGoogleCalendarService creates a calendar service
func NewGoogleCalendarService(cfg *config.Config, settings *Settings, repo *QuoteRepository) *GoogleCalendarService {
	return &GoogleCalendarService{
		cfg:      cfg,
		settings: settings,
		repo:     repo,
		endpoint: google.Endpoint,
	}
}

// IsConfigured reports whether OAuth client credentials are stored
func (s *GoogleCalendarService) IsConfigured() bool {
	return s.settings.GoogleClientID() != "" && s.settings.GoogleClientSecret() != ""
}

// IsConnected reports whether a token set is stored
func (s *GoogleCalendarService) IsConnected() bool {
	return s.settings.IsGoogleConnected() && s.settings.GoogleToken() != nil
}

func (s *GoogleCalendarService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.settings.GoogleClientID(),
		ClientSecret: s.settings.GoogleClientSecret(),
		RedirectURL:  s.cfg.AppURL + "/api/admin/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/calendar.events",
		},
		Endpoint: s.endpoint,
	}
}

// AuthURL builds the consent URL for the OAuth flow. A single-use state nonce
// is persisted for the callback to verify.
func (s *GoogleCalendarService) AuthURL() (string, error) {
	if !s.IsConfigured() {
		return "", ErrGoogleNotConfigured
	}

	state := uuid.New().String()
	if !s.settings.Set(OptGoogleOAuthState, state) {
		return "", fmt.Errorf("failed to persist oauth state")
	}

	return s.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// VerifyState checks the callback state against the stored nonce and clears
// it either way
func (s *GoogleCalendarService) VerifyState(state string) error {
	stored := s.settings.Get(OptGoogleOAuthState, "")
	s.settings.Delete(OptGoogleOAuthState)

	if stored == "" || state == "" {
		return ErrInvalidOAuthState
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(state)) != 1 {
		return ErrInvalidOAuthState
	}
	return nil
}

// ExchangeCode trades the authorization code for a token set and persists it
func (s *GoogleCalendarService) ExchangeCode(ctx context.Context, code string) error {
	if !s.IsConfigured() {
		return ErrGoogleNotConfigured
	}

	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	if !s.settings.SaveGoogleTokens(token) {
		return fmt.Errorf("failed to persist tokens")
	}
	log.Printf("[GOOGLE] Account connected, token expires %s", token.Expiry.Format(time.RFC3339))
	return nil
}

// Disconnect drops the stored token set. Client credentials are kept so the
// admin can reconnect without re-entering them.
func (s *GoogleCalendarService) Disconnect() {
	s.settings.ClearGoogleTokens()
	log.Printf("[GOOGLE] Account disconnected")
}

// RefreshIfNeeded refreshes the access token when it is expired or inside
// the refresh window. A fresh token is a no-op.
func (s *GoogleCalendarService) RefreshIfNeeded(ctx context.Context) error {
	if !s.IsConnected() {
		return ErrGoogleNotConnected
	}
	if !s.settings.GoogleTokenNeedsRefresh() {
		return nil
	}

	refresh := s.settings.GoogleRefreshToken()
	if refresh == "" {
		return fmt.Errorf("no refresh token stored")
	}

	// Seed the token source with only the refresh token so it must mint a
	// fresh access token.
	src := s.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refresh})
	token, err := src.Token()
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}

	if !s.settings.SaveGoogleTokens(token) {
		return fmt.Errorf("failed to persist refreshed token")
	}
	log.Printf("[GOOGLE] Access token refreshed, expires %s", token.Expiry.Format(time.RFC3339))
	return nil
}

// client returns an authenticated calendar API client
func (s *GoogleCalendarService) client(ctx context.Context) (*calendar.Service, error) {
	if err := s.RefreshIfNeeded(ctx); err != nil {
		return nil, err
	}

	token := s.settings.GoogleToken()
	if token == nil {
		return nil, ErrGoogleNotConnected
	}

	opts := []option.ClientOption{
		option.WithHTTPClient(s.oauthConfig().Client(ctx, token)),
	}
	if s.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.apiEndpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// CreateEvent creates a tentative calendar event for a quote's requested
// meeting and records the event id on the quote
func (s *GoogleCalendarService) CreateEvent(ctx context.Context, q *models.Quote) (*calendar.Event, error) {
	return s.createEvent(ctx, q, false)
}

// CreateEventWithMeet creates the event with a Google Meet conference
// attached. Returns the created event; the join link is in the event's
// HangoutLink.
func (s *GoogleCalendarService) CreateEventWithMeet(ctx context.Context, q *models.Quote) (*calendar.Event, error) {
	return s.createEvent(ctx, q, true)
}

func (s *GoogleCalendarService) createEvent(ctx context.Context, q *models.Quote, withMeet bool) (*calendar.Event, error) {
	svc, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	start, end, err := s.eventWindow(q)
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary:     fmt.Sprintf("Quote Meeting: %s (%s)", q.CustomerName, q.QuoteID),
		Description: buildEventDescription(q),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
		Status:      "tentative",
		Attendees: []*calendar.EventAttendee{
			{Email: q.Email, DisplayName: q.CustomerName},
		},
	}

	if withMeet {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: fmt.Sprintf("quote-%s-%d", q.QuoteID, time.Now().Unix()),
			},
		}
	}

	call := svc.Events.Insert(s.settings.GoogleCalendarID(), event)
	if withMeet {
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("event creation failed: %w", err)
	}

	s.repo.SaveGoogleEvent(q.ID, created.Id)
	action := models.QuoteLogGoogleEventCreated
	details := "Google Calendar event created: " + created.Id
	if withMeet {
		action = models.QuoteLogGoogleMeetCreated
		details = "Google Meet event created: " + created.Id
		if created.HangoutLink != "" {
			details += " (" + created.HangoutLink + ")"
		}
	}
	s.repo.Log(q.QuoteID, action, details, 0)

	return created, nil
}

// eventWindow resolves the meeting start and end from the quote's scheduling
// preferences, defaulting missing parts
func (s *GoogleCalendarService) eventWindow(q *models.Quote) (time.Time, time.Time, error) {
	date := q.PreferredDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	slot := q.PreferredTime
	if slot == "" {
		slot = "09:00"
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+slot, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid meeting time %q %q: %w", date, slot, err)
	}

	duration := time.Duration(s.settings.MeetingDuration()) * time.Minute
	return start, start.Add(duration), nil
}

func buildEventDescription(q *models.Quote) string {
	lines := []string{
		"Quote ID: " + q.QuoteID,
		"Company: " + q.CompanyName,
		"Phone: " + q.Phone,
		"",
		"Contract Duration: " + q.ContractDuration,
	}

	if items := q.Items(); len(items) > 0 {
		lines = append(lines, "", "Products/Services:")
		for _, item := range items {
			lines = append(lines, fmt.Sprintf("- %s x %d", item.ProductName, item.Quantity))
		}
	}

	return strings.Join(lines, "\n")
}

// RefreshTokenJob is the hourly cron callback keeping the stored access
// token warm
func (s *GoogleCalendarService) RefreshTokenJob(ctx context.Context) {
	if !s.IsConnected() {
		return
	}
	if err := s.RefreshIfNeeded(ctx); err != nil {
		log.Printf("[GOOGLE] Scheduled token refresh failed: %v", err)
	}
}
