package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLineItem is one line of a client-held cart. The backend only ever sees it
// transiently inside a checkout request.
type CartLineItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductSlug string          `json:"productSlug"`
	ProductName string          `json:"productName"`
	VariantID   string          `json:"variantId"`
	VariantName string          `json:"variantName"`
	SKU         string          `json:"sku,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Quantity    int             `json:"quantity"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
}

// LineID builds the composite line identity used by the cart store.
func LineID(productID, variantID string) string {
	return fmt.Sprintf("%s-%s", productID, variantID)
}

// Subtotal is the client-side estimate for the line.
func (l CartLineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ShippingInfo is the buyer-entered shipping record attached to a charge.
type ShippingInfo struct {
	Name    string  `json:"name"`
	Email   string  `json:"email,omitempty"`
	Address Address `json:"address"`
}
