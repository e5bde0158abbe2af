package payment

import (
	"encoding/json"
	"strconv"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
)

// Processor limit for a single metadata value.
const maxMetadataValue = 500

const (
	MetaEmail            = "email"
	MetaChannel          = "channel"
	MetaItems            = "items"
	MetaItemsTruncated   = "items_truncated"
	MetaPricingValidated = "pricing_validated"
	MetaFallbackLines    = "fallback_lines"
)

type lineSummary struct {
	Variant  string `json:"v"`
	Name     string `json:"n"`
	Quantity int    `json:"q"`
	Price    string `json:"p"`
}

// BuildMetadata describes the charged order for auditing on the processor side.
func BuildMetadata(order *domain.ReconciledOrder, email, channel string) map[string]string {
	meta := map[string]string{
		MetaChannel:          channel,
		MetaPricingValidated: strconv.FormatBool(order.Valid),
		MetaFallbackLines:    strconv.Itoa(order.FallbackLines()),
	}
	if email != "" {
		meta[MetaEmail] = email
	}

	items, truncated := summarizeLines(order)
	meta[MetaItems] = items
	if truncated {
		meta[MetaItemsTruncated] = "true"
	}
	return meta
}

// summarizeLines encodes the lines compactly, dropping trailing lines until
// the value fits the processor limit.
func summarizeLines(order *domain.ReconciledOrder) (string, bool) {
	places := domain.MinorUnitExponent(order.Currency)
	summary := make([]lineSummary, 0, len(order.Lines))
	for _, l := range order.Lines {
		summary = append(summary, lineSummary{
			Variant:  l.VariantID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.UnitPrice.StringFixed(places),
		})
	}

	for n := len(summary); n >= 0; n-- {
		encoded, err := json.Marshal(summary[:n])
		if err != nil {
			return "[]", n < len(summary)
		}
		if len(encoded) <= maxMetadataValue {
			return string(encoded), n < len(summary)
		}
	}
	return "[]", true
}
