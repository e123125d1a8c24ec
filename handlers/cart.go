package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"cart_quote_app_go/models"
	"cart_quote_app_go/services"

	"github.com/labstack/echo/v4"
)

// cartView is the cart as the public API presents it: effective prices with
// quantity tiers applied and a computed subtotal
type cartView struct {
	Token    string             `json:"token"`
	Items    []models.QuoteItem `json:"items"`
	Subtotal float64            `json:"subtotal"`
}

func buildCartView(carts *services.CartService, cart *models.Cart) cartView {
	items, subtotal, err := carts.BuildQuotePayload(cart)
	if err != nil {
		items = []models.QuoteItem{}
	}
	return cartView{Token: cart.Token, Items: items, Subtotal: subtotal}
}

// GetCartHandler returns the cart for a session token, creating one when the
// token is empty or unknown
func GetCartHandler(c echo.Context) error {
	carts := cartService()
	cart, err := carts.GetOrCreate(c.QueryParam("token"))
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load cart")
	}
	return jsonSuccess(c, http.StatusOK, "", buildCartView(carts, cart))
}

// AddCartItemRequest is the add-to-cart payload
type AddCartItemRequest struct {
	Token       string  `json:"token"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// AddCartItemHandler adds a product line to the cart, merging with an
// existing line for the same product
func AddCartItemHandler(c echo.Context) error {
	var req AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.ProductID == 0 {
		return jsonError(c, http.StatusBadRequest, "Product id is required")
	}
	if req.Price < 0 {
		return jsonError(c, http.StatusBadRequest, "Price cannot be negative")
	}

	carts := cartService()
	cart, err := carts.GetOrCreate(req.Token)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load cart")
	}

	if err := carts.AddItem(cart, req.ProductID, req.ProductName, req.Price, req.Quantity); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	return jsonSuccess(c, http.StatusOK, "Item added", buildCartView(carts, cart))
}

// UpdateCartItemHandler sets a line's quantity; zero removes the line
func UpdateCartItemHandler(c echo.Context) error {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid product id")
	}

	var req struct {
		Token    string `json:"token"`
		Quantity int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	carts := cartService()
	cart, err := carts.Get(req.Token)
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Cart not found")
	}

	if err := carts.UpdateQuantity(cart, uint(productID), req.Quantity); err != nil {
		if errors.Is(err, services.ErrCartNotFound) {
			return jsonError(c, http.StatusNotFound, "Item not in cart")
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to update item")
	}
	return jsonSuccess(c, http.StatusOK, "Item updated", buildCartView(carts, cart))
}

// RemoveCartItemHandler deletes a product line from the cart
func RemoveCartItemHandler(c echo.Context) error {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid product id")
	}

	carts := cartService()
	cart, err := carts.Get(c.QueryParam("token"))
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Cart not found")
	}

	if err := carts.RemoveItem(cart, uint(productID)); err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to remove item")
	}
	return jsonSuccess(c, http.StatusOK, "Item removed", buildCartView(carts, cart))
}

// ClearCartHandler removes every line from the cart; the token stays valid
func ClearCartHandler(c echo.Context) error {
	carts := cartService()
	cart, err := carts.Get(c.QueryParam("token"))
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Cart not found")
	}

	if err := carts.Clear(cart); err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to clear cart")
	}
	return jsonSuccess(c, http.StatusOK, "Cart cleared", buildCartView(carts, cart))
}
