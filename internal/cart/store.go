// Package cart is the client-held shopping cart. Every mutation is written
// through to Storage; nothing here ever returns an error to the caller.
package cart

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/shopspring/decimal"
)

const defaultCurrency = "USD"

type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  *slog.Logger
	items   []domain.CartLineItem
}

// NewStore loads any persisted cart. Unreadable or corrupt state is logged and
// the store starts empty.
func NewStore(storage Storage, logger *slog.Logger) *Store {
	s := &Store{
		storage: storage,
		logger:  logger,
		items:   []domain.CartLineItem{},
	}

	data, err := storage.Load()
	if err != nil {
		logger.Error("failed to load cart", "error", err)
		return s
	}
	if len(data) == 0 {
		return s
	}

	var items []domain.CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Error("failed to parse persisted cart, starting empty", "error", err)
		return s
	}
	for _, item := range items {
		if item.Quantity >= 1 {
			s.items = append(s.items, item)
		}
	}
	return s
}

// AddLine adds quantity units of the variant. An unknown variant or a
// quantity below one is a no-op; an existing line accumulates.
func (s *Store) AddLine(product *domain.Product, variantID string, quantity int) {
	if product == nil || quantity < 1 {
		return
	}
	variant := product.FindVariant(variantID)
	if variant == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].VariantID == variantID {
			s.items[i].Quantity += quantity
			s.persist()
			return
		}
	}

	price, currency := linePrice(product, variant)
	s.items = append(s.items, domain.CartLineItem{
		ID:          domain.LineID(product.ID, variant.ID),
		ProductID:   product.ID,
		ProductSlug: product.Slug,
		ProductName: product.Name,
		VariantID:   variant.ID,
		VariantName: variant.Name,
		SKU:         variant.SKU,
		Price:       price,
		Currency:    currency,
		Quantity:    quantity,
		Thumbnail:   product.ThumbnailURL(),
	})
	s.persist()
}

// linePrice prefers variant pricing, then the product's starting price, then zero.
func linePrice(product *domain.Product, variant *domain.Variant) (decimal.Decimal, string) {
	if m := variant.UnitPrice(); m != nil {
		return m.Amount, currencyOrDefault(m.Currency)
	}
	if m := product.StartPrice(); m != nil {
		return m.Amount, currencyOrDefault(m.Currency)
	}
	return decimal.Zero, defaultCurrency
}

func currencyOrDefault(c string) string {
	if c == "" {
		return defaultCurrency
	}
	return c
}

func (s *Store) RemoveLine(lineID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(lineID)
	s.persist()
}

func (s *Store) removeLocked(lineID string) {
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != lineID {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

// SetQuantity overwrites a line's quantity; n below one removes the line.
func (s *Store) SetQuantity(lineID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 1 {
		s.removeLocked(lineID)
		s.persist()
		return
	}
	for i := range s.items {
		if s.items[i].ID == lineID {
			s.items[i].Quantity = n
		}
	}
	s.persist()
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []domain.CartLineItem{}
	s.persist()
}

// Count is the number of units across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

// Total is a display estimate only; checkout is always re-priced by the server.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (s *Store) ContainsVariant(variantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.VariantID == variantID {
			return true
		}
	}
	return false
}

// Lines returns a copy of the current lines.
func (s *Store) Lines() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) persist() {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Error("failed to encode cart", "error", err)
		return
	}
	if err := s.storage.Save(data); err != nil {
		s.logger.Error("failed to persist cart", "error", err)
	}
}
