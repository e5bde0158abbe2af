package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
)

type fingerprintLine struct {
	Variant  string `json:"v"`
	Quantity int    `json:"q"`
	Price    string `json:"p"`
	Currency string `json:"c"`
}

type fingerprintInput struct {
	Lines    []fingerprintLine    `json:"lines"`
	Email    string               `json:"email"`
	Shipping *domain.ShippingInfo `json:"shipping,omitempty"`
}

// Fingerprint identifies what a checkout request would charge. Line order,
// price formatting and email case do not change it.
func Fingerprint(req CheckoutRequest) string {
	in := fingerprintInput{
		Lines: make([]fingerprintLine, 0, len(req.Items)),
		Email: strings.ToLower(strings.TrimSpace(buyerEmail(req))),
	}
	for _, item := range req.Items {
		in.Lines = append(in.Lines, fingerprintLine{
			Variant:  item.VariantID,
			Quantity: item.Quantity,
			Price:    item.Price.String(),
			Currency: strings.ToUpper(item.Currency),
		})
	}
	sort.Slice(in.Lines, func(a, b int) bool {
		la, lb := in.Lines[a], in.Lines[b]
		if la.Variant != lb.Variant {
			return la.Variant < lb.Variant
		}
		if la.Quantity != lb.Quantity {
			return la.Quantity < lb.Quantity
		}
		return la.Price < lb.Price
	})
	if req.Shipping != nil {
		s := *req.Shipping
		s.Email = ""
		in.Shipping = &s
	}

	data, _ := json.Marshal(in)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
