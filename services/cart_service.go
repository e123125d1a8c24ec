package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"cart_quote_app_go/models"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

var (
	// ErrCartNotFound indicates no cart exists for the given token
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartEmpty indicates the cart has no items
	ErrCartEmpty = errors.New("cart is empty")
	// ErrInvalidQuantity indicates a non-positive quantity on an add request
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// CartService manages anonymous carts and turns them into quote payloads
type CartService struct {
	db        *gorm.DB
	tiers     *TierService
	sanitizer *bluemonday.Policy
}

// NewCartService creates a cart service over the given database
func NewCartService(db *gorm.DB, tiers *TierService) *CartService {
	return &CartService{
		db:        db,
		tiers:     tiers,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// GetOrCreate fetches the cart for a session token, creating a fresh one when
// the token is empty or unknown
func (s *CartService) GetOrCreate(token string) (*models.Cart, error) {
	if token != "" {
		var cart models.Cart
		err := s.db.Preload("Items").First(&cart, "token = ?", token).Error
		if err == nil {
			return &cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	cart := models.Cart{}
	if err := s.db.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// Get fetches a cart by token without creating one
func (s *CartService) Get(token string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.Preload("Items").First(&cart, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

// AddItem adds a product line to the cart, merging quantity into an existing
// line for the same product. Product names are stripped of any markup.
func (s *CartService) AddItem(cart *models.Cart, productID uint, productName string, price float64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	name := strings.TrimSpace(s.sanitizer.Sanitize(productName))
	if name == "" {
		return errors.New("product name is required")
	}

	var existing models.CartItem
	err := s.db.First(&existing, "cart_id = ? AND product_id = ?", cart.ID, productID).Error
	if err == nil {
		existing.Quantity += quantity
		existing.Price = price
		if err := s.db.Save(&existing).Error; err != nil {
			return err
		}
		return s.touch(cart)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	item := models.CartItem{
		CartID:      cart.ID,
		ProductID:   productID,
		ProductName: name,
		Price:       price,
		Quantity:    quantity,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return err
	}
	return s.touch(cart)
}

// UpdateQuantity sets a line's quantity; zero or negative removes the line
func (s *CartService) UpdateQuantity(cart *models.Cart, productID uint, quantity int) error {
	if quantity < 1 {
		return s.RemoveItem(cart, productID)
	}

	res := s.db.Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCartNotFound
	}
	return s.touch(cart)
}

// RemoveItem deletes a product line from the cart
func (s *CartService) RemoveItem(cart *models.Cart, productID uint) error {
	err := s.db.Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return err
	}
	return s.touch(cart)
}

// Clear removes every line from the cart. The cart row itself survives so the
// session token stays valid.
func (s *CartService) Clear(cart *models.Cart) error {
	if err := s.db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return s.touch(cart)
}

// ClearByToken clears the cart for a token, ignoring unknown tokens
func (s *CartService) ClearByToken(token string) {
	cart, err := s.Get(token)
	if err != nil {
		return
	}
	if err := s.Clear(cart); err != nil {
		log.Printf("[CART] Failed to clear cart %s: %v", token, err)
	}
}

// unitPrice resolves the effective price for a line, tier pricing included
func (s *CartService) unitPrice(item *models.CartItem) float64 {
	if s.tiers == nil {
		return item.Price
	}
	return s.tiers.PriceForQuantity(item.ProductID, item.Quantity, item.Price)
}

// Subtotal computes the cart total with tier pricing applied per line
func (s *CartService) Subtotal(cart *models.Cart) float64 {
	items := s.lines(cart)
	var total float64
	for i := range items {
		total += s.unitPrice(&items[i]) * float64(items[i].Quantity)
	}
	return total
}

// BuildQuotePayload freezes the cart into quote line items with tier pricing
// applied. Returns ErrCartEmpty for a cart with no lines.
func (s *CartService) BuildQuotePayload(cart *models.Cart) ([]models.QuoteItem, float64, error) {
	lines := s.lines(cart)
	if len(lines) == 0 {
		return nil, 0, ErrCartEmpty
	}

	items := make([]models.QuoteItem, 0, len(lines))
	var subtotal float64
	for i := range lines {
		price := s.unitPrice(&lines[i])
		lineTotal := price * float64(lines[i].Quantity)
		items = append(items, models.QuoteItem{
			ProductID:   lines[i].ProductID,
			ProductName: lines[i].ProductName,
			Quantity:    lines[i].Quantity,
			Price:       price,
			LineTotal:   lineTotal,
		})
		subtotal += lineTotal
	}
	return items, subtotal, nil
}

// PurgeStale deletes carts untouched for longer than olderThan, items
// included. Returns the number of carts removed.
func (s *CartService) PurgeStale(olderThan time.Duration) int64 {
	cutoff := time.Now().Add(-olderThan)

	var ids []uint
	if err := s.db.Model(&models.Cart{}).Where("updated_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
		log.Printf("[CART] Stale cart scan failed: %v", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	if err := s.db.Where("cart_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		log.Printf("[CART] Stale cart item purge failed: %v", err)
		return 0
	}
	res := s.db.Where("id IN ?", ids).Delete(&models.Cart{})
	if res.Error != nil {
		log.Printf("[CART] Stale cart purge failed: %v", res.Error)
		return 0
	}
	return res.RowsAffected
}

func (s *CartService) lines(cart *models.Cart) []models.CartItem {
	var items []models.CartItem
	if err := s.db.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
		log.Printf("[CART] Failed to load items for cart %d: %v", cart.ID, err)
		return nil
	}
	return items
}

func (s *CartService) touch(cart *models.Cart) error {
	return s.db.Model(&models.Cart{}).Where("id = ?", cart.ID).
		Update("updated_at", time.Now().UTC()).Error
}
