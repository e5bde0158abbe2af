package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart          = errors.New("cart has no line items")
	ErrPricingUnavailable = errors.New("authoritative pricing unavailable")
)

// VariantPricer resolves current unit prices for a batch of variants. Variants
// it cannot price are left out of the map.
type VariantPricer interface {
	VariantPrices(ctx context.Context, channel string, ids []string) (map[string]domain.AuthoritativePrice, error)
}

// Reconciler recomputes an order total from authoritative prices. Quantities
// come from the client; unit prices come from the catalog whenever it knows
// the variant.
type Reconciler struct {
	pricer  VariantPricer
	channel string
	logger  *slog.Logger
}

func NewReconciler(pricer VariantPricer, channel string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		pricer:  pricer,
		channel: channel,
		logger:  logger,
	}
}

// Reconcile prices every line. A variant missing from the lookup falls back to
// its submitted price. If the lookup itself fails the returned error wraps
// ErrPricingUnavailable and no order is produced; callers decide whether to
// fall back to ClientOrder.
func (r *Reconciler) Reconcile(ctx context.Context, lines []domain.CartLineItem) (*domain.ReconciledOrder, error) {
	ids := VariantIDs(lines)
	if len(ids) == 0 {
		return nil, ErrEmptyCart
	}

	prices, err := r.pricer.VariantPrices(ctx, r.channel, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPricingUnavailable, err)
	}

	order := &domain.ReconciledOrder{
		Total: decimal.Zero,
		Valid: true,
		Lines: make([]domain.LineResolution, 0, len(lines)),
	}

	for _, line := range lines {
		res := domain.LineResolution{
			VariantID:      line.VariantID,
			Name:           line.ProductName,
			Quantity:       line.Quantity,
			SubmittedPrice: line.Price,
		}

		currency := line.Currency
		if price, ok := prices[line.VariantID]; ok {
			res.UnitPrice = price.Amount
			res.Source = domain.PriceSourceAuthoritative
			if price.Currency != "" {
				currency = price.Currency
			}
			if !price.Amount.Equal(line.Price) {
				r.logger.InfoContext(ctx, "submitted price differs from catalog",
					"variant_id", line.VariantID,
					"submitted", line.Price.String(),
					"authoritative", price.Amount.String(),
				)
			}
		} else {
			res.UnitPrice = line.Price
			res.Source = domain.PriceSourceFallback
			r.logger.WarnContext(ctx, "variant not found in catalog pricing, using submitted price",
				"variant_id", line.VariantID,
				"submitted", line.Price.String(),
			)
		}

		res.Subtotal = res.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Total = order.Total.Add(res.Subtotal)
		order.Lines = append(order.Lines, res)
		r.setCurrency(ctx, order, currency)
	}

	return order, nil
}

// ClientOrder totals the submitted prices unmodified. The result is never
// Valid.
func ClientOrder(lines []domain.CartLineItem) *domain.ReconciledOrder {
	order := &domain.ReconciledOrder{
		Total: decimal.Zero,
		Lines: make([]domain.LineResolution, 0, len(lines)),
	}
	for _, line := range lines {
		subtotal := line.Subtotal()
		order.Total = order.Total.Add(subtotal)
		order.Lines = append(order.Lines, domain.LineResolution{
			VariantID:      line.VariantID,
			Name:           line.ProductName,
			Quantity:       line.Quantity,
			SubmittedPrice: line.Price,
			UnitPrice:      line.Price,
			Subtotal:       subtotal,
			Source:         domain.PriceSourceFallback,
		})
		if order.Currency == "" {
			order.Currency = strings.ToUpper(line.Currency)
		}
	}
	return order
}

// VariantIDs returns the distinct variant ids in submission order.
func VariantIDs(lines []domain.CartLineItem) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.VariantID == "" {
			continue
		}
		if _, ok := seen[line.VariantID]; ok {
			continue
		}
		seen[line.VariantID] = struct{}{}
		ids = append(ids, line.VariantID)
	}
	return ids
}

// The order is charged in the currency of its first line.
func (r *Reconciler) setCurrency(ctx context.Context, order *domain.ReconciledOrder, currency string) {
	currency = strings.ToUpper(currency)
	if order.Currency == "" {
		order.Currency = currency
		return
	}
	if currency != "" && currency != order.Currency {
		r.logger.WarnContext(ctx, "mixed currencies in cart", "order_currency", order.Currency, "line_currency", currency)
	}
}
