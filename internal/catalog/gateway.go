package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
)

const (
	DefaultProductsPage    = 12
	DefaultCategoriesPage  = 20
	DefaultCollectionsPage = 10
	MaxPageSize            = 100
	SlugProductsPage       = 50
)

// Querier runs a GraphQL document against the catalog.
type Querier interface {
	Query(ctx context.Context, query string, variables map[string]any, out any) error
}

type connection[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

func (c *connection[T]) nodes() []T {
	if c == nil {
		return []T{}
	}
	out := make([]T, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node)
	}
	return out
}

type categoryNode struct {
	ID              string                       `json:"id"`
	Name            string                       `json:"name"`
	Slug            string                       `json:"slug"`
	Description     string                       `json:"description"`
	BackgroundImage *domain.Image                `json:"backgroundImage"`
	Children        *connection[domain.NamedRef] `json:"children"`
	Products        *connection[domain.Product]  `json:"products"`
}

func (n *categoryNode) toDomain() domain.Category {
	c := domain.Category{
		ID:              n.ID,
		Name:            n.Name,
		Slug:            n.Slug,
		Description:     n.Description,
		BackgroundImage: n.BackgroundImage,
		Children:        n.Children.nodes(),
	}
	if n.Products != nil {
		c.Products = n.Products.nodes()
	}
	c.Normalize()
	return c
}

type collectionNode struct {
	ID              string                      `json:"id"`
	Name            string                      `json:"name"`
	Slug            string                      `json:"slug"`
	BackgroundImage *domain.Image               `json:"backgroundImage"`
	Products        *connection[domain.Product] `json:"products"`
}

func (n *collectionNode) toDomain() domain.Collection {
	c := domain.Collection{
		ID:              n.ID,
		Name:            n.Name,
		Slug:            n.Slug,
		BackgroundImage: n.BackgroundImage,
	}
	if n.Products != nil {
		c.Products = n.Products.nodes()
	}
	c.Normalize()
	return c
}

type variantPricingNode struct {
	ID      string                 `json:"id"`
	Pricing *domain.VariantPricing `json:"pricing"`
}

// Gateway exposes typed catalog reads. Every read is scoped to a sales channel.
type Gateway struct {
	querier      Querier
	channel      string
	featuredSlug string
	logger       *slog.Logger
}

func NewGateway(querier Querier, channel, featuredSlug string, logger *slog.Logger) *Gateway {
	if featuredSlug == "" {
		featuredSlug = "featured"
	}
	return &Gateway{
		querier:      querier,
		channel:      channel,
		featuredSlug: featuredSlug,
		logger:       logger,
	}
}

// Channel is the sales channel used when a caller passes none.
func (g *Gateway) Channel() string {
	return g.channel
}

func (g *Gateway) channelOr(channel string) string {
	if channel == "" {
		return g.channel
	}
	return channel
}

// PageSize clamps a requested page size to [1, MaxPageSize], using def when
// first is not positive.
func PageSize(first, def int) int {
	if first < 1 {
		return def
	}
	if first > MaxPageSize {
		return MaxPageSize
	}
	return first
}

func (g *Gateway) ListProducts(ctx context.Context, channel string, first int) ([]domain.Product, error) {
	var data struct {
		Products *connection[domain.Product] `json:"products"`
	}
	vars := map[string]any{"channel": g.channelOr(channel), "first": PageSize(first, DefaultProductsPage)}
	if err := g.querier.Query(ctx, productListQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return normalizeProducts(data.Products.nodes()), nil
}

func (g *Gateway) ListCategories(ctx context.Context, first int) ([]domain.Category, error) {
	var data struct {
		Categories *connection[categoryNode] `json:"categories"`
	}
	vars := map[string]any{"first": PageSize(first, DefaultCategoriesPage)}
	if err := g.querier.Query(ctx, categoriesQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	nodes := data.Categories.nodes()
	out := make([]domain.Category, 0, len(nodes))
	for i := range nodes {
		out = append(out, nodes[i].toDomain())
	}
	return out, nil
}

func (g *Gateway) ListCollections(ctx context.Context, channel string, first int) ([]domain.Collection, error) {
	var data struct {
		Collections *connection[collectionNode] `json:"collections"`
	}
	vars := map[string]any{"channel": g.channelOr(channel), "first": PageSize(first, DefaultCollectionsPage)}
	if err := g.querier.Query(ctx, collectionsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	nodes := data.Collections.nodes()
	out := make([]domain.Collection, 0, len(nodes))
	for i := range nodes {
		c := nodes[i].toDomain()
		c.Products = nil
		out = append(out, c)
	}
	return out, nil
}

// FeaturedProducts returns the products of the named collection, or of the
// default featured collection when slug is empty. A missing collection is
// ErrNotFound.
func (g *Gateway) FeaturedProducts(ctx context.Context, channel, slug string) ([]domain.Product, error) {
	if slug == "" {
		slug = g.featuredSlug
	}
	var data struct {
		Collection *collectionNode `json:"collection"`
	}
	vars := map[string]any{"channel": g.channelOr(channel), "slug": slug}
	if err := g.querier.Query(ctx, featuredProductsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	if data.Collection == nil {
		return nil, fmt.Errorf("featured collection %q: %w", slug, ErrNotFound)
	}
	return normalizeProducts(data.Collection.Products.nodes()), nil
}

func (g *Gateway) ProductBySlug(ctx context.Context, channel, slug string) (*domain.Product, error) {
	var data struct {
		Product *domain.Product `json:"product"`
	}
	vars := map[string]any{"slug": slug, "channel": g.channelOr(channel)}
	if err := g.querier.Query(ctx, productDetailQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("product %q: %w", slug, err)
	}
	if data.Product == nil {
		return nil, fmt.Errorf("product %q: %w", slug, ErrNotFound)
	}
	data.Product.Normalize()
	return data.Product, nil
}

func (g *Gateway) CategoryBySlug(ctx context.Context, channel, slug string) (*domain.Category, error) {
	var data struct {
		Category *categoryNode `json:"category"`
	}
	vars := map[string]any{"slug": slug, "channel": g.channelOr(channel), "first": SlugProductsPage}
	if err := g.querier.Query(ctx, categoryBySlugQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("category %q: %w", slug, err)
	}
	if data.Category == nil {
		return nil, fmt.Errorf("category %q: %w", slug, ErrNotFound)
	}
	c := data.Category.toDomain()
	return &c, nil
}

func (g *Gateway) CollectionBySlug(ctx context.Context, channel, slug string) (*domain.Collection, error) {
	var data struct {
		Collection *collectionNode `json:"collection"`
	}
	vars := map[string]any{"slug": slug, "channel": g.channelOr(channel), "first": SlugProductsPage}
	if err := g.querier.Query(ctx, collectionBySlugQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("collection %q: %w", slug, err)
	}
	if data.Collection == nil {
		return nil, fmt.Errorf("collection %q: %w", slug, ErrNotFound)
	}
	c := data.Collection.toDomain()
	return &c, nil
}

// VariantPrices looks up the current gross unit price of each variant,
// batching the ids into queries of at most MaxPageSize. Variants that are
// unknown, local-only, unpriced or carry a negative price are absent from the
// result. A failed batch fails the whole lookup.
func (g *Gateway) VariantPrices(ctx context.Context, channel string, ids []string) (map[string]domain.AuthoritativePrice, error) {
	prices := make(map[string]domain.AuthoritativePrice, len(ids))

	upstream := make([]string, 0, len(ids))
	for _, id := range ids {
		if !domain.IsLocalVariant(id) {
			upstream = append(upstream, id)
		}
	}

	for start := 0; start < len(upstream); start += MaxPageSize {
		end := min(start+MaxPageSize, len(upstream))
		if err := g.variantPricesBatch(ctx, g.channelOr(channel), upstream[start:end], prices); err != nil {
			return nil, err
		}
	}
	return prices, nil
}

func (g *Gateway) variantPricesBatch(ctx context.Context, channel string, ids []string, prices map[string]domain.AuthoritativePrice) error {
	var data struct {
		ProductVariants *connection[variantPricingNode] `json:"productVariants"`
	}
	vars := map[string]any{"ids": ids, "channel": channel, "first": len(ids)}
	if err := g.querier.Query(ctx, variantPricingQuery, vars, &data); err != nil {
		return fmt.Errorf("variant prices: %w", err)
	}

	for _, node := range data.ProductVariants.nodes() {
		if node.Pricing == nil || node.Pricing.Price == nil {
			continue
		}
		gross := node.Pricing.Price.Gross
		if gross.Amount.IsNegative() {
			g.logger.WarnContext(ctx, "ignoring negative catalog price", "variant_id", node.ID, "amount", gross.Amount.String())
			continue
		}
		prices[node.ID] = domain.AuthoritativePrice{
			VariantID: node.ID,
			Amount:    gross.Amount,
			Currency:  gross.Currency,
		}
	}
	return nil
}

func normalizeProducts(products []domain.Product) []domain.Product {
	for i := range products {
		products[i].Normalize()
	}
	return products
}
