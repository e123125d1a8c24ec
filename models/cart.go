package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is an anonymous shopping cart identified by an opaque session token.
// Carts are working state only: submitting a quote freezes the items into the
// quote payload and clears the cart.
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Token string `gorm:"type:uuid;uniqueIndex;not null" json:"token"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

// BeforeCreate hook to generate the session token
func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.Token == "" {
		c.Token = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for the Cart model
func (Cart) TableName() string {
	return "quote_carts"
}

// CartItem is one product line in a cart. Price is the base unit price; tier
// pricing is applied at read time so tier changes affect open carts.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CartID uint `gorm:"index;not null" json:"cart_id"`

	ProductID   uint    `gorm:"index;not null" json:"product_id"`
	ProductName string  `gorm:"size:255;not null" json:"product_name"`
	Price       float64 `gorm:"type:decimal(10,2)" json:"price"`
	Quantity    int     `gorm:"not null" json:"quantity"`
}

// TableName specifies the table name for the CartItem model
func (CartItem) TableName() string {
	return "quote_cart_items"
}
