package services

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func TestExportXLSX(t *testing.T) {
	repo, _ := newTestRepo(t)
	svc := NewExportService(repo)

	q := makeQuote("Alice", "alice@example.com", "Acme")
	q.Subtotal = 42.5
	repo.Insert(q)
	repo.Insert(makeQuote("Bob", "bob@example.com", ""))

	payload, err := svc.ExportXLSX(QuoteFilter{})
	assert.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	assert.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Quotes")
	assert.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "Quote ID", rows[0][0])

	var names []string
	for _, row := range rows[1:] {
		names = append(names, row[1])
	}
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, names)
}

func TestExportXLSXHonorsFilter(t *testing.T) {
	repo, _ := newTestRepo(t)
	svc := NewExportService(repo)

	repo.Insert(makeQuote("Alice", "alice@example.com", ""))
	repo.Insert(makeQuote("Bob", "bob@example.com", ""))

	payload, err := svc.ExportXLSX(QuoteFilter{Search: "alice"})
	assert.NoError(t, err)

	f, _ := excelize.OpenReader(bytes.NewReader(payload))
	defer f.Close()
	rows, _ := f.GetRows("Quotes")
	assert.Len(t, rows, 2)
}

func TestArchiveLocal(t *testing.T) {
	repo, _ := newTestRepo(t)
	svc := NewExportService(repo)

	dir := t.TempDir()
	prev := Storage
	Storage = NewLocalStorage(dir)
	defer func() { Storage = prev }()

	key, err := svc.Archive(context.Background(), []byte("a,b,c\n"), "csv")
	assert.NoError(t, err)
	assert.Contains(t, key, "exports/")

	saved, err := os.ReadFile(filepath.Join(dir, key))
	assert.NoError(t, err)
	assert.Equal(t, "a,b,c\n", string(saved))
}

func TestArchiveFetchAndDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	svc := NewExportService(repo)

	prev := Storage
	Storage = NewLocalStorage(t.TempDir())
	defer func() { Storage = prev }()

	key, err := svc.Archive(context.Background(), []byte("a,b,c\n"), "csv")
	assert.NoError(t, err)

	body, contentType, err := svc.FetchArchive(context.Background(), key)
	assert.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	content, err := io.ReadAll(body)
	body.Close()
	assert.NoError(t, err)
	assert.Equal(t, "a,b,c\n", string(content))

	assert.NoError(t, svc.DeleteArchive(context.Background(), key))
	_, _, err = svc.FetchArchive(context.Background(), key)
	assert.Error(t, err)
}

func TestArchiveKeyValidation(t *testing.T) {
	repo, _ := newTestRepo(t)
	svc := NewExportService(repo)

	prev := Storage
	Storage = NewLocalStorage(t.TempDir())
	defer func() { Storage = prev }()

	assert.True(t, IsExportArchiveKey("exports/quotes_20260101_120000.csv"))
	assert.False(t, IsExportArchiveKey(""))
	assert.False(t, IsExportArchiveKey("secrets/app.db"))
	assert.False(t, IsExportArchiveKey("exports/../app.db"))

	_, _, err := svc.FetchArchive(context.Background(), "exports/../app.db")
	assert.Error(t, err)
	assert.Error(t, svc.DeleteArchive(context.Background(), "secrets/app.db"))
}

func TestArchiveRequiresStorage(t *testing.T) {
	repo, _ := newTestRepo(t)
	svc := NewExportService(repo)

	prev := Storage
	Storage = nil
	defer func() { Storage = prev }()

	_, err := svc.Archive(context.Background(), []byte("x"), "csv")
	assert.Error(t, err)
}
