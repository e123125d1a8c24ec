package models

import "time"

// ProductTier defines a quantity price break for a product. The tier with the
// highest MinQuantity not exceeding the ordered quantity wins; with no
// matching tier the base price applies.
type ProductTier struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID   uint    `gorm:"index;not null" json:"product_id"`
	MinQuantity int     `gorm:"not null" json:"min_quantity"`
	Price       float64 `gorm:"type:decimal(10,2);not null" json:"price"`
}

// TableName specifies the table name for the ProductTier model
func (ProductTier) TableName() string {
	return "quote_product_tiers"
}
