package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"cart_quote_app_go/models"

	"github.com/xuri/excelize/v2"
)

// ExportService renders quote exports and optionally archives them to the
// configured storage backend
type ExportService struct {
	repo *QuoteRepository
}

// NewExportService creates an export service
func NewExportService(repo *QuoteRepository) *ExportService {
	return &ExportService{repo: repo}
}

// ExportCSV renders the matching quotes as CSV
func (s *ExportService) ExportCSV(filter QuoteFilter) (string, bool) {
	return s.repo.ExportCSV(filter)
}

// ExportXLSX renders the matching quotes as a spreadsheet, paginating through
// the result set in chunks
func (s *ExportService) ExportXLSX(filter QuoteFilter) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Quotes"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, title := range exportHeader() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, title)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	row := 2
	var writeErr error
	s.repo.ForEachChunk(filter, func(quotes []models.Quote) bool {
		for i := range quotes {
			for col, value := range exportRow(&quotes[i]) {
				cell, err := excelize.CoordinatesToCellName(col+1, row)
				if err != nil {
					writeErr = err
					return false
				}
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					writeErr = err
					return false
				}
			}
			row++
		}
		return true
	})
	if writeErr != nil {
		return nil, fmt.Errorf("failed to build spreadsheet: %w", writeErr)
	}

	f.SetColWidth(sheet, "A", "M", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// Archive stores an export payload on the configured storage backend and
// returns its key
func (s *ExportService) Archive(ctx context.Context, payload []byte, format string) (string, error) {
	if Storage == nil {
		return "", fmt.Errorf("storage not initialized")
	}

	contentType := "text/csv"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	key := GenerateExportKey(format)
	result, err := Storage.UploadReader(ctx, bytes.NewReader(payload), key, contentType, int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("failed to archive export: %w", err)
	}

	log.Printf("[EXPORT] Archived %s (%d bytes)", result.Key, result.FileSize)
	return result.Key, nil
}

// FetchArchive retrieves a previously archived export from the storage
// backend. Returns the content reader and its content type; the caller closes
// the reader.
func (s *ExportService) FetchArchive(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if Storage == nil {
		return nil, "", fmt.Errorf("storage not initialized")
	}
	if !IsExportArchiveKey(key) {
		return nil, "", fmt.Errorf("invalid archive key %q", key)
	}
	return Storage.Get(ctx, key)
}

// DeleteArchive removes an archived export from the storage backend
func (s *ExportService) DeleteArchive(ctx context.Context, key string) error {
	if Storage == nil {
		return fmt.Errorf("storage not initialized")
	}
	if !IsExportArchiveKey(key) {
		return fmt.Errorf("invalid archive key %q", key)
	}
	return Storage.Delete(ctx, key)
}

// IsExportArchiveKey reports whether a key addresses an export archive. Keys
// outside the exports/ prefix or containing a parent segment are rejected.
func IsExportArchiveKey(key string) bool {
	return strings.HasPrefix(key, "exports/") && !strings.Contains(key, "..")
}

// ExportFilename suggests a download filename for an export
func ExportFilename(format string) string {
	return fmt.Sprintf("quotes_%s.%s", time.Now().Format("20060102_150405"), strings.ToLower(format))
}
