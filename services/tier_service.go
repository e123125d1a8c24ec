package services

import (
	"log"
	"sort"

	"cart_quote_app_go/models"

	"gorm.io/gorm"
)

// TierService manages quantity price breaks for products
type TierService struct {
	db *gorm.DB
}

// NewTierService creates a tier service over the given database
func NewTierService(db *gorm.DB) *TierService {
	return &TierService{db: db}
}

// TiersByProduct returns a product's tiers ordered by ascending MinQuantity
func (s *TierService) TiersByProduct(productID uint) []models.ProductTier {
	var tiers []models.ProductTier
	err := s.db.Where("product_id = ?", productID).Order("min_quantity ASC").Find(&tiers).Error
	if err != nil {
		log.Printf("[TIERS] Failed to load tiers for product %d: %v", productID, err)
		return nil
	}
	return tiers
}

// SaveTiers replaces a product's tier set atomically. Tiers with a
// non-positive MinQuantity or negative price are skipped.
func (s *TierService) SaveTiers(productID uint, tiers []models.ProductTier) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductTier{}).Error; err != nil {
			return err
		}
		for _, tier := range tiers {
			if tier.MinQuantity < 1 || tier.Price < 0 {
				continue
			}
			row := models.ProductTier{
				ProductID:   productID,
				MinQuantity: tier.MinQuantity,
				Price:       tier.Price,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTiers removes every tier for a product
func (s *TierService) DeleteTiers(productID uint) error {
	return s.db.Where("product_id = ?", productID).Delete(&models.ProductTier{}).Error
}

// PriceForQuantity resolves the unit price for an ordered quantity. The tier
// with the highest MinQuantity not exceeding qty wins; without a matching
// tier the base price applies.
func (s *TierService) PriceForQuantity(productID uint, qty int, basePrice float64) float64 {
	tiers := s.TiersByProduct(productID)
	if len(tiers) == 0 {
		return basePrice
	}

	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinQuantity < tiers[j].MinQuantity
	})

	price := basePrice
	for _, tier := range tiers {
		if tier.MinQuantity <= qty {
			price = tier.Price
		}
	}
	return price
}
