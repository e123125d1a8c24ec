package services

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"cart_quote_app_go/models"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// OptionPrefix namespaces every option key so the purge command can remove
// all of them with a single prefix match.
const OptionPrefix = "cart_quote_"

// Option keys
const (
	OptQuotePrefix        = OptionPrefix + "quote_prefix"
	OptQuoteStartNumber   = OptionPrefix + "quote_start_number"
	OptAdminEmail         = OptionPrefix + "admin_email"
	OptSendToAdmin        = OptionPrefix + "send_to_admin"
	OptSendToClient       = OptionPrefix + "send_to_client"
	OptEmailSubjectAdmin  = OptionPrefix + "email_subject_admin"
	OptEmailSubjectClient = OptionPrefix + "email_subject_client"
	OptMeetingDuration    = OptionPrefix + "meeting_duration"
	OptTimeSlots          = OptionPrefix + "time_slots"
	OptAutoCreateEvent    = OptionPrefix + "auto_create_event"
	OptEnablePDF          = OptionPrefix + "enable_pdf"
	OptEnableGoogleMeet   = OptionPrefix + "enable_google_meet"
	OptDefaultStatus      = OptionPrefix + "default_status"
	OptLogRetentionDays   = OptionPrefix + "log_retention_days"
	OptDeleteOnUninstall  = OptionPrefix + "delete_on_uninstall"

	OptGoogleClientID     = OptionPrefix + "google_client_id"
	OptGoogleClientSecret = OptionPrefix + "google_client_secret"
	OptGoogleCalendarID   = OptionPrefix + "google_calendar_id"
	OptGoogleAccessToken  = OptionPrefix + "google_access_token"
	OptGoogleRefreshToken = OptionPrefix + "google_refresh_token"
	OptGoogleTokenExpires = OptionPrefix + "google_token_expires"
	OptGoogleConnected    = OptionPrefix + "google_connected"
	OptGoogleOAuthState   = OptionPrefix + "google_oauth_state"
)

// tokenRefreshWindow is how long before expiry a token counts as stale
const tokenRefreshWindow = 5 * time.Minute

// Settings reads and writes runtime-mutable configuration from the options
// table. Process-level configuration (ports, API keys) lives in config.Config
// instead; only values an administrator changes at runtime belong here.
type Settings struct {
	db *gorm.DB
}

// NewSettings creates a settings store backed by the given database
func NewSettings(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

// Get returns the stored value for key, or def when absent
func (s *Settings) Get(key, def string) string {
	var opt models.Option
	err := s.db.First(&opt, "key = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[SETTINGS] Failed to read option %s: %v", key, err)
		}
		return def
	}
	return opt.Value
}

// Set stores a value, creating or overwriting the option
func (s *Settings) Set(key, value string) bool {
	opt := models.Option{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.Save(&opt).Error
	if err != nil {
		log.Printf("[SETTINGS] Failed to write option %s: %v", key, err)
		return false
	}
	return true
}

// Delete removes an option; missing keys are not an error
func (s *Settings) Delete(key string) bool {
	err := s.db.Delete(&models.Option{}, "key = ?", key).Error
	if err != nil {
		log.Printf("[SETTINGS] Failed to delete option %s: %v", key, err)
		return false
	}
	return true
}

// DeleteWithPrefix removes every option whose key starts with prefix.
// Used by the purge command.
func (s *Settings) DeleteWithPrefix(prefix string) (int64, error) {
	res := s.db.Where("key LIKE ?", prefix+"%").Delete(&models.Option{})
	return res.RowsAffected, res.Error
}

func (s *Settings) getBool(key string, def bool) bool {
	switch s.Get(key, "") {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}

func (s *Settings) getInt(key string, def int) int {
	v := s.Get(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Settings) setBool(key string, v bool) bool {
	if v {
		return s.Set(key, "1")
	}
	return s.Set(key, "0")
}

// SeedDefaults inserts default values for options that do not exist yet.
// Runs at startup; existing values are never overwritten.
func (s *Settings) SeedDefaults() {
	defaults := map[string]string{
		OptQuotePrefix:        "Q",
		OptQuoteStartNumber:   "1001",
		OptSendToAdmin:        "1",
		OptSendToClient:       "1",
		OptEmailSubjectAdmin:  "New Quote Submission #{quote_id}",
		OptEmailSubjectClient: "Thank you for your quote request #{quote_id}",
		OptMeetingDuration:    "60",
		OptTimeSlots:          `["09:00","11:00","14:00","16:00"]`,
		OptGoogleCalendarID:   "primary",
		OptDefaultStatus:      models.QuoteStatusPending,
		OptLogRetentionDays:   "90",
		OptAutoCreateEvent:    "0",
		OptEnablePDF:          "0",
		OptEnableGoogleMeet:   "0",
		OptDeleteOnUninstall:  "0",
	}

	for key, value := range defaults {
		var count int64
		if err := s.db.Model(&models.Option{}).Where("key = ?", key).Count(&count).Error; err != nil {
			log.Printf("[SETTINGS] Failed to check option %s: %v", key, err)
			continue
		}
		if count == 0 {
			s.Set(key, value)
		}
	}
}

// Typed getters mirroring the recognized option set

func (s *Settings) QuotePrefix() string      { return s.Get(OptQuotePrefix, "Q") }
func (s *Settings) QuoteStartNumber() int    { return s.getInt(OptQuoteStartNumber, 1001) }
func (s *Settings) AdminEmail() string       { return s.Get(OptAdminEmail, "") }
func (s *Settings) SendToAdmin() bool        { return s.getBool(OptSendToAdmin, true) }
func (s *Settings) SendToClient() bool       { return s.getBool(OptSendToClient, true) }
func (s *Settings) MeetingDuration() int     { return s.getInt(OptMeetingDuration, 60) }
func (s *Settings) AutoCreateEvent() bool    { return s.getBool(OptAutoCreateEvent, false) }
func (s *Settings) IsPDFEnabled() bool       { return s.getBool(OptEnablePDF, false) }
func (s *Settings) IsGoogleMeetEnabled() bool { return s.getBool(OptEnableGoogleMeet, false) }
func (s *Settings) DeleteOnUninstall() bool  { return s.getBool(OptDeleteOnUninstall, false) }
func (s *Settings) LogRetentionDays() int    { return s.getInt(OptLogRetentionDays, 90) }
func (s *Settings) GoogleClientID() string   { return s.Get(OptGoogleClientID, "") }
func (s *Settings) GoogleCalendarID() string { return s.Get(OptGoogleCalendarID, "primary") }
func (s *Settings) IsGoogleConnected() bool  { return s.getBool(OptGoogleConnected, false) }

func (s *Settings) GoogleClientSecret() string {
	return s.decrypted(OptGoogleClientSecret)
}

func (s *Settings) SetGoogleClientSecret(secret string) bool {
	return s.Set(OptGoogleClientSecret, s.encrypted(secret))
}

func (s *Settings) EmailSubjectAdmin() string {
	return s.Get(OptEmailSubjectAdmin, "New Quote Submission #{quote_id}")
}

func (s *Settings) EmailSubjectClient() string {
	return s.Get(OptEmailSubjectClient, "Thank you for your quote request #{quote_id}")
}

func (s *Settings) DefaultStatus() string {
	status := s.Get(OptDefaultStatus, models.QuoteStatusPending)
	if !models.IsValidQuoteStatus(status) {
		return models.QuoteStatusPending
	}
	return status
}

// TimeSlots returns the configured meeting time slots
func (s *Settings) TimeSlots() []string {
	raw := s.Get(OptTimeSlots, "")
	if raw == "" {
		return []string{"09:00", "11:00", "14:00", "16:00"}
	}
	var slots []string
	if err := json.Unmarshal([]byte(raw), &slots); err != nil || len(slots) == 0 {
		return []string{"09:00", "11:00", "14:00", "16:00"}
	}
	return slots
}

// Google token persistence. Access and refresh tokens are encrypted at rest
// when DATA_ENCRYPTION_KEY is set; without a key they are stored verbatim.

func (s *Settings) encrypted(value string) string {
	enc, err := EncryptSensitiveData(value)
	if err != nil {
		if !errors.Is(err, ErrEncryptionKeyNotSet) {
			log.Printf("[SETTINGS] Encryption failed, storing plaintext: %v", err)
		}
		return value
	}
	return enc
}

func (s *Settings) decrypted(key string) string {
	stored := s.Get(key, "")
	if stored == "" {
		return ""
	}
	dec, err := DecryptSensitiveData(stored)
	if err != nil {
		// Plaintext stored before a key was configured, or key missing
		return stored
	}
	return dec
}

// SaveGoogleTokens persists an OAuth token set. The refresh token is retained
// across refreshes unless the provider issued a new one.
func (s *Settings) SaveGoogleTokens(token *oauth2.Token) bool {
	ok := s.Set(OptGoogleAccessToken, s.encrypted(token.AccessToken))
	if token.RefreshToken != "" {
		ok = s.Set(OptGoogleRefreshToken, s.encrypted(token.RefreshToken)) && ok
	}
	if !token.Expiry.IsZero() {
		ok = s.Set(OptGoogleTokenExpires, strconv.FormatInt(token.Expiry.Unix(), 10)) && ok
	}
	return s.setBool(OptGoogleConnected, true) && ok
}

// ClearGoogleTokens removes the stored token set and marks the integration
// disconnected. Client id/secret are kept so the admin can reconnect.
func (s *Settings) ClearGoogleTokens() {
	s.Delete(OptGoogleAccessToken)
	s.Delete(OptGoogleRefreshToken)
	s.Delete(OptGoogleTokenExpires)
	s.setBool(OptGoogleConnected, false)
}

// GoogleAccessToken returns the stored access token, decrypted
func (s *Settings) GoogleAccessToken() string {
	return s.decrypted(OptGoogleAccessToken)
}

// GoogleRefreshToken returns the stored refresh token, decrypted
func (s *Settings) GoogleRefreshToken() string {
	return s.decrypted(OptGoogleRefreshToken)
}

// GoogleTokenExpiry returns the stored expiry, zero when unknown
func (s *Settings) GoogleTokenExpiry() time.Time {
	v := s.Get(OptGoogleTokenExpires, "")
	if v == "" {
		return time.Time{}
	}
	unix, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// GoogleToken assembles the persisted token set, nil when none is stored
func (s *Settings) GoogleToken() *oauth2.Token {
	access := s.GoogleAccessToken()
	refresh := s.GoogleRefreshToken()
	if access == "" && refresh == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       s.GoogleTokenExpiry(),
		TokenType:    "Bearer",
	}
}

// GoogleTokenNeedsRefresh reports whether the access token is expired or
// about to expire
func (s *Settings) GoogleTokenNeedsRefresh() bool {
	expiry := s.GoogleTokenExpiry()
	if expiry.IsZero() {
		return s.GoogleAccessToken() == ""
	}
	return time.Now().After(expiry.Add(-tokenRefreshWindow))
}
