package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LocalProduct is a product kept in the storefront's own database rather than
// the commerce platform. Its variants are unknown to catalog pricing.
type LocalProduct struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           string          `json:"price"`
	Category        string          `json:"category"`
	Image           string          `json:"image"`
	Vendor          string          `json:"vendor"`
	VendorProductID *string         `json:"vendorProductId"`
	VendorData      json.RawMessage `json:"vendorData"`
	InStock         bool            `json:"inStock"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// LocalVariantPrefix marks variant ids that only exist in the local product table.
const LocalVariantPrefix = "local-"

// IsLocalVariant reports whether the commerce platform can know the variant.
func IsLocalVariant(id string) bool {
	return strings.HasPrefix(id, LocalVariantPrefix)
}

// LocalVariantID is the single variant id a local product exposes to the cart.
func (p *LocalProduct) LocalVariantID() string {
	return LocalVariantPrefix + strconv.FormatInt(p.ID, 10)
}

// AsCatalogProduct presents the product in catalog shape so it can be added
// to a cart.
func (p *LocalProduct) AsCatalogProduct() *Product {
	amount, _ := decimal.NewFromString(p.Price)
	price := &TaxedMoney{Gross: Money{Amount: amount, Currency: "USD"}}
	product := &Product{
		ID:          "local-product-" + strconv.FormatInt(p.ID, 10),
		Name:        p.Name,
		Slug:        LocalVariantPrefix + strconv.FormatInt(p.ID, 10),
		Description: p.Description,
		Thumbnail:   &Image{URL: p.Image, Alt: p.Name},
		Category:    &NamedRef{Name: p.Category, Slug: strings.ToLower(p.Category)},
		Pricing:     &ProductPricing{PriceRange: &PriceRange{Start: price}},
		Variants: []Variant{{
			ID:      p.LocalVariantID(),
			Name:    "Default",
			Pricing: &VariantPricing{Price: price},
		}},
	}
	product.Normalize()
	return product
}

// LocalProductInput carries create and update fields. Nil means "not set";
// for updates only set fields are written.
type LocalProductInput struct {
	Name            *string         `json:"name"`
	Description     *string         `json:"description"`
	Price           *string         `json:"price"`
	Category        *string         `json:"category"`
	Image           *string         `json:"image"`
	Vendor          *string         `json:"vendor"`
	VendorProductID *string         `json:"vendorProductId"`
	VendorData      json.RawMessage `json:"vendorData"`
	InStock         *bool           `json:"inStock"`
}

var ErrInvalidProduct = errors.New("invalid product data")

var (
	priceFormat  = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	validVendors = map[string]struct{}{"printful": {}, "printify": {}, "custom": {}, "other": {}}
)

// Validate checks the input. With partial set, missing fields are allowed but
// present ones must still be valid.
func (in *LocalProductInput) Validate(partial bool) error {
	var problems []string
	required := func(field string, v *string) {
		if v == nil {
			if !partial {
				problems = append(problems, field+" is required")
			}
			return
		}
		if strings.TrimSpace(*v) == "" {
			problems = append(problems, field+" is required")
		}
	}

	required("name", in.Name)
	required("description", in.Description)
	required("category", in.Category)

	if in.Price == nil {
		if !partial {
			problems = append(problems, "price is required")
		}
	} else if !priceFormat.MatchString(*in.Price) {
		problems = append(problems, "invalid price format")
	}

	if in.Image == nil {
		if !partial {
			problems = append(problems, "image is required")
		}
	} else if !isAbsoluteURL(*in.Image) {
		problems = append(problems, "image must be a valid URL")
	}

	if in.Vendor == nil {
		if !partial {
			problems = append(problems, "vendor is required")
		}
	} else if _, ok := validVendors[*in.Vendor]; !ok {
		problems = append(problems, "vendor must be one of printful, printify, custom, other")
	}

	if len(in.VendorData) > 0 && !json.Valid(in.VendorData) {
		problems = append(problems, "vendorData must be valid JSON")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(problems, "; "))
	}
	return nil
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
