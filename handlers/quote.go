package handlers

import (
	"context"
	"log"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"time"

	"cart_quote_app_go/config"
	"cart_quote_app_go/models"
	"cart_quote_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var notesPolicy = bluemonday.StrictPolicy()

// SubmitQuoteRequest is the public submission payload
type SubmitQuoteRequest struct {
	CartToken        string `json:"cart_token"`
	CustomerName     string `json:"customer_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	CompanyName      string `json:"company_name"`
	PreferredDate    string `json:"preferred_date"`
	PreferredTime    string `json:"preferred_time"`
	ContractDuration string `json:"contract_duration"`
	MeetingRequested bool   `json:"meeting_requested"`
	AdditionalNotes  string `json:"additional_notes"`
}

// SubmitQuoteHandler handles the public quote submission. The cart referenced
// by cart_token is frozen into the quote and cleared on success.
func SubmitQuoteHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)

	var req SubmitQuoteRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	settings := settingsStore()

	if req.CustomerName == "" {
		return jsonError(c, http.StatusBadRequest, "Customer name is required")
	}
	if req.Email == "" || !emailRe.MatchString(req.Email) {
		return jsonError(c, http.StatusBadRequest, "A valid email address is required")
	}
	if !models.IsValidContractDuration(req.ContractDuration) {
		return jsonError(c, http.StatusBadRequest, "Invalid contract duration")
	}
	if req.MeetingRequested {
		if _, err := time.Parse("2006-01-02", req.PreferredDate); err != nil {
			return jsonError(c, http.StatusBadRequest, "Preferred date must be YYYY-MM-DD")
		}
		if !isAllowedTimeSlot(settings, req.PreferredTime) {
			return jsonError(c, http.StatusBadRequest, "Preferred time is not an available slot")
		}
	}

	carts := cartService()
	cart, err := carts.Get(req.CartToken)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Cart not found")
	}

	items, subtotal, err := carts.BuildQuotePayload(cart)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Cart is empty")
	}

	quote := &models.Quote{
		CustomerName:     req.CustomerName,
		Email:            req.Email,
		Phone:            req.Phone,
		CompanyName:      req.CompanyName,
		PreferredDate:    req.PreferredDate,
		PreferredTime:    req.PreferredTime,
		ContractDuration: req.ContractDuration,
		MeetingRequested: req.MeetingRequested,
		AdditionalNotes:  notesPolicy.Sanitize(req.AdditionalNotes),
		Subtotal:         subtotal,
	}
	if err := quote.SetItems(items); err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to store cart items")
	}

	repo := quoteRepo()
	id, ok := repo.Insert(quote)
	if !ok {
		return jsonError(c, http.StatusInternalServerError, "Failed to save quote")
	}

	services.NewEmailService(cfg, settings, repo).SendQuoteEmailsAsync(quote)

	if req.MeetingRequested && settings.AutoCreateEvent() {
		calendar := services.NewGoogleCalendarService(cfg, settings, repo)
		if calendar.IsConnected() {
			go func(q models.Quote) {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				var err error
				if settings.IsGoogleMeetEnabled() {
					_, err = calendar.CreateEventWithMeet(ctx, &q)
				} else {
					_, err = calendar.CreateEvent(ctx, &q)
				}
				if err != nil {
					log.Printf("[QUOTES] Auto event creation failed for %s: %v", q.QuoteID, err)
				}
			}(*quote)
		}
	}

	if err := carts.Clear(cart); err != nil {
		log.Printf("[QUOTES] Failed to clear cart after submission: %v", err)
	}

	return jsonSuccess(c, http.StatusCreated, "Quote submitted", map[string]interface{}{
		"id":       id,
		"quote_id": quote.QuoteID,
	})
}

func isAllowedTimeSlot(settings *services.Settings, slot string) bool {
	for _, allowed := range settings.TimeSlots() {
		if allowed == slot {
			return true
		}
	}
	return false
}

func filterFromQuery(c echo.Context) services.QuoteFilter {
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	page, _ := strconv.Atoi(c.QueryParam("page"))
	return services.QuoteFilter{
		Status:   c.QueryParam("status"),
		Search:   c.QueryParam("search"),
		DateFrom: c.QueryParam("date_from"),
		DateTo:   c.QueryParam("date_to"),
		OrderBy:  c.QueryParam("orderby"),
		Order:    c.QueryParam("order"),
		PerPage:  perPage,
		Page:     page,
	}
}

// ListQuotesHandler returns the filtered, paginated quote list
func ListQuotesHandler(c echo.Context) error {
	repo := quoteRepo()
	filter := filterFromQuery(c)

	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	return jsonSuccess(c, http.StatusOK, "", map[string]interface{}{
		"quotes":   repo.List(filter),
		"total":    repo.Count(filter),
		"page":     page,
		"per_page": perPage,
	})
}

func findQuoteParam(c echo.Context, repo *services.QuoteRepository) (*models.Quote, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, jsonError(c, http.StatusBadRequest, "Invalid quote id")
	}
	q := repo.Find(uint(id))
	if q == nil {
		return nil, jsonError(c, http.StatusNotFound, "Quote not found")
	}
	return q, nil
}

// GetQuoteHandler returns a single quote with its line items
func GetQuoteHandler(c echo.Context) error {
	repo := quoteRepo()
	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	return jsonSuccess(c, http.StatusOK, "", map[string]interface{}{
		"quote": q,
		"items": q.Items(),
	})
}

// UpdateQuoteStatusHandler sets a quote's workflow status
func UpdateQuoteStatusHandler(c echo.Context) error {
	repo := quoteRepo()
	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if !models.IsValidQuoteStatus(req.Status) {
		return jsonError(c, http.StatusBadRequest, "Invalid status")
	}

	if !repo.UpdateStatus(q.ID, req.Status, 0) {
		return jsonError(c, http.StatusInternalServerError, "Failed to update status")
	}
	return jsonSuccess(c, http.StatusOK, "Status updated", map[string]interface{}{
		"status": req.Status,
	})
}

// SaveQuoteNotesHandler stores the internal admin notes on a quote
func SaveQuoteNotesHandler(c echo.Context) error {
	repo := quoteRepo()
	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	var req struct {
		AdminNotes string `json:"admin_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	if !repo.Update(q.ID, map[string]interface{}{"admin_notes": notesPolicy.Sanitize(req.AdminNotes)}) {
		return jsonError(c, http.StatusInternalServerError, "Failed to save notes")
	}
	return jsonSuccess(c, http.StatusOK, "Notes saved", nil)
}

// UpdateQuoteMeetingHandler updates a quote's meeting preferences
func UpdateQuoteMeetingHandler(c echo.Context) error {
	repo := quoteRepo()
	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	var req struct {
		PreferredDate    string `json:"preferred_date"`
		PreferredTime    string `json:"preferred_time"`
		MeetingRequested bool   `json:"meeting_requested"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.MeetingRequested {
		if _, err := time.Parse("2006-01-02", req.PreferredDate); err != nil {
			return jsonError(c, http.StatusBadRequest, "Preferred date must be YYYY-MM-DD")
		}
		if _, err := time.Parse("15:04", req.PreferredTime); err != nil {
			return jsonError(c, http.StatusBadRequest, "Preferred time must be HH:MM")
		}
	}

	ok := repo.Update(q.ID, map[string]interface{}{
		"preferred_date":    req.PreferredDate,
		"preferred_time":    req.PreferredTime,
		"meeting_requested": req.MeetingRequested,
	})
	if !ok {
		return jsonError(c, http.StatusInternalServerError, "Failed to update meeting")
	}
	return jsonSuccess(c, http.StatusOK, "Meeting updated", nil)
}

// DeleteQuoteHandler removes a quote; its log history is retained
func DeleteQuoteHandler(c echo.Context) error {
	repo := quoteRepo()
	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	if !repo.Delete(q.ID) {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete quote")
	}
	return jsonSuccess(c, http.StatusOK, "Quote deleted", nil)
}

// QuoteLogsHandler returns a quote's audit trail, newest first
func QuoteLogsHandler(c echo.Context) error {
	repo := quoteRepo()
	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	return jsonSuccess(c, http.StatusOK, "", map[string]interface{}{
		"logs": repo.GetLogs(q.QuoteID),
	})
}

// QuoteStatsHandler returns dashboard statistics
func QuoteStatsHandler(c echo.Context) error {
	return jsonSuccess(c, http.StatusOK, "", quoteRepo().Statistics())
}

// ExportQuotesHandler streams the filtered quotes as CSV or XLSX. With
// archive=1 a copy also lands on the storage backend.
func ExportQuotesHandler(c echo.Context) error {
	repo := quoteRepo()
	export := services.NewExportService(repo)
	filter := filterFromQuery(c)

	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}

	var payload []byte
	var contentType string
	switch format {
	case "csv":
		out, ok := export.ExportCSV(filter)
		if !ok {
			return jsonError(c, http.StatusInternalServerError, "Export failed")
		}
		payload = []byte(out)
		contentType = "text/csv"
	case "xlsx":
		out, err := export.ExportXLSX(filter)
		if err != nil {
			return jsonError(c, http.StatusInternalServerError, "Export failed")
		}
		payload = out
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return jsonError(c, http.StatusBadRequest, "Unsupported export format")
	}

	if c.QueryParam("archive") == "1" {
		if key, err := export.Archive(c.Request().Context(), payload, format); err != nil {
			log.Printf("[EXPORT] Archive failed: %v", err)
		} else {
			c.Response().Header().Set("X-Archive-Key", key)
		}
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+services.ExportFilename(format)+`"`)
	return c.Blob(http.StatusOK, contentType, payload)
}

// GetExportArchiveHandler streams a previously archived export identified by
// its storage key
func GetExportArchiveHandler(c echo.Context) error {
	key := c.QueryParam("key")
	if !services.IsExportArchiveKey(key) {
		return jsonError(c, http.StatusBadRequest, "Invalid archive key")
	}

	export := services.NewExportService(quoteRepo())
	body, contentType, err := export.FetchArchive(c.Request().Context(), key)
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Archive not found")
	}
	defer body.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+path.Base(key)+`"`)
	return c.Stream(http.StatusOK, contentType, body)
}

// DeleteExportArchiveHandler removes an archived export from storage
func DeleteExportArchiveHandler(c echo.Context) error {
	key := c.QueryParam("key")
	if !services.IsExportArchiveKey(key) {
		return jsonError(c, http.StatusBadRequest, "Invalid archive key")
	}

	export := services.NewExportService(quoteRepo())
	if err := export.DeleteArchive(c.Request().Context(), key); err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete archive")
	}
	return jsonSuccess(c, http.StatusOK, "Archive deleted", nil)
}

// QuotePDFHandler renders a quote as a PDF document. Disabled unless the
// enable_pdf option is on.
func QuotePDFHandler(c echo.Context) error {
	settings := settingsStore()
	if !settings.IsPDFEnabled() {
		return jsonError(c, http.StatusForbidden, "PDF generation is disabled")
	}

	repo := quoteRepo()
	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	pdf, err := services.NewPDFService().GenerateQuotePDF(q)
	if err != nil {
		log.Printf("[QUOTES] PDF generation failed for %s: %v", q.QuoteID, err)
		return jsonError(c, http.StatusInternalServerError, "PDF generation failed")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+q.QuoteID+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
