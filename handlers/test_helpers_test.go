package handlers

import (
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"cart_quote_app_go/config"
	"cart_quote_app_go/db"
	"cart_quote_app_go/models"
	"cart_quote_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Unique shared memory name isolates tests while letting async goroutines
	// share the connection
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	assert.NoError(t, err)

	err = testDB.AutoMigrate(
		&models.Quote{},
		&models.QuoteLog{},
		&models.Option{},
		&models.Cart{},
		&models.CartItem{},
		&models.ProductTier{},
	)
	assert.NoError(t, err)

	db.DB = testDB

	settings := services.NewSettings(testDB)
	settings.SeedDefaults()
	settings.Set(services.OptAdminEmail, "admin@example.com")

	if services.Storage == nil {
		services.Storage = services.NewLocalStorage(t.TempDir())
	}

	return testDB
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	c.Set("config", &config.Config{
		Environment:   "test",
		AppURL:        "http://localhost:8080",
		EmailTestMode: true,
	})

	return e, c, rec
}

func formatUint(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}

// seedCart creates a cart with one line and returns its token
func seedCart(t *testing.T) string {
	t.Helper()
	carts := cartService()
	cart, err := carts.GetOrCreate("")
	assert.NoError(t, err)
	assert.NoError(t, carts.AddItem(cart, 1, "Widget", 10, 2))
	return cart.Token
}

// seedQuote inserts a quote directly and returns it
func seedQuote(t *testing.T) *models.Quote {
	t.Helper()
	repo := quoteRepo()
	q := &models.Quote{
		CustomerName: "Alice",
		Email:        "alice@example.com",
		CompanyName:  "Acme",
	}
	q.SetItems([]models.QuoteItem{
		{ProductID: 1, ProductName: "Widget", Quantity: 2, Price: 10, LineTotal: 20},
	})
	q.Subtotal = 20
	_, ok := repo.Insert(q)
	assert.True(t, ok)
	return q
}
