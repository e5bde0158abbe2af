package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Catalog records mirror the commerce API shapes. Optional nested objects are
// pointers; collections are normalized to empty slices so clients never see null.

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// MarshalJSON writes the amount as a JSON number, the way the commerce API
// sends it.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	}{json.Number(m.Amount.String()), m.Currency})
}

type TaxedMoney struct {
	Gross Money `json:"gross"`
}

type PriceRange struct {
	Start *TaxedMoney `json:"start,omitempty"`
	Stop  *TaxedMoney `json:"stop,omitempty"`
}

type ProductPricing struct {
	PriceRange *PriceRange `json:"priceRange,omitempty"`
}

type VariantPricing struct {
	Price *TaxedMoney `json:"price,omitempty"`
}

type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

type Media struct {
	ID   string `json:"id,omitempty"`
	URL  string `json:"url"`
	Alt  string `json:"alt,omitempty"`
	Type string `json:"type,omitempty"`
}

type NamedRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type SelectedAttribute struct {
	Attribute NamedRef   `json:"attribute"`
	Values    []NamedRef `json:"values"`
}

type Variant struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	SKU               string              `json:"sku,omitempty"`
	QuantityAvailable *int                `json:"quantityAvailable,omitempty"`
	Pricing           *VariantPricing     `json:"pricing,omitempty"`
	Attributes        []SelectedAttribute `json:"attributes"`
	Media             []Media             `json:"media"`
}

// UnitPrice returns the variant-level gross price, if the API reported one.
func (v *Variant) UnitPrice() *Money {
	if v.Pricing == nil || v.Pricing.Price == nil {
		return nil
	}
	return &v.Pricing.Price.Gross
}

type Product struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Slug           string              `json:"slug"`
	Description    string              `json:"description,omitempty"`
	SEOTitle       string              `json:"seoTitle,omitempty"`
	SEODescription string              `json:"seoDescription,omitempty"`
	Thumbnail      *Image              `json:"thumbnail,omitempty"`
	Media          []Media             `json:"media"`
	Category       *NamedRef           `json:"category,omitempty"`
	Pricing        *ProductPricing     `json:"pricing,omitempty"`
	Variants       []Variant           `json:"variants"`
	Attributes     []SelectedAttribute `json:"attributes"`
}

// StartPrice is the lower bound of the product's price range.
func (p *Product) StartPrice() *Money {
	if p.Pricing == nil || p.Pricing.PriceRange == nil || p.Pricing.PriceRange.Start == nil {
		return nil
	}
	return &p.Pricing.PriceRange.Start.Gross
}

func (p *Product) ThumbnailURL() string {
	if p.Thumbnail == nil {
		return ""
	}
	return p.Thumbnail.URL
}

func (p *Product) FindVariant(id string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// Normalize applies the defaulting rules for missing collections.
func (p *Product) Normalize() {
	if p.Media == nil {
		p.Media = []Media{}
	}
	if p.Variants == nil {
		p.Variants = []Variant{}
	}
	p.Attributes = normalizeAttributes(p.Attributes)
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.Media == nil {
			v.Media = []Media{}
		}
		v.Attributes = normalizeAttributes(v.Attributes)
	}
}

func normalizeAttributes(attrs []SelectedAttribute) []SelectedAttribute {
	if attrs == nil {
		return []SelectedAttribute{}
	}
	for i := range attrs {
		if attrs[i].Values == nil {
			attrs[i].Values = []NamedRef{}
		}
	}
	return attrs
}

type Category struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	Description     string     `json:"description,omitempty"`
	BackgroundImage *Image     `json:"backgroundImage,omitempty"`
	Children        []NamedRef `json:"children"`
	Products        []Product  `json:"products,omitempty"`
}

func (c *Category) Normalize() {
	if c.Children == nil {
		c.Children = []NamedRef{}
	}
	for i := range c.Products {
		c.Products[i].Normalize()
	}
}

type Collection struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	BackgroundImage *Image    `json:"backgroundImage,omitempty"`
	Products        []Product `json:"products,omitempty"`
}

func (c *Collection) Normalize() {
	for i := range c.Products {
		c.Products[i].Normalize()
	}
}
