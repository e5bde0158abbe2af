package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
)

const productColumns = `id, name, description, price, category, image, vendor, vendor_product_id, vendor_data, in_stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.LocalProduct, error) {
	var (
		p          domain.LocalProduct
		vendorID   sql.NullString
		vendorData sql.NullString
		createdAt  dbTime
		updatedAt  dbTime
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.Image,
		&p.Vendor,
		&vendorID,
		&vendorData,
		&p.InStock,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = time.Time(createdAt), time.Time(updatedAt)
	if vendorID.Valid {
		p.VendorProductID = &vendorID.String
	}
	if vendorData.Valid {
		p.VendorData = json.RawMessage(vendorData.String)
	}
	return &p, nil
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...any) ([]*domain.LocalProduct, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.LocalProduct, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]*domain.LocalProduct, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

func (r *Repository) ListByCategory(ctx context.Context, category string) ([]*domain.LocalProduct, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY id`, category)
}

func (r *Repository) ListByVendor(ctx context.Context, vendor string) ([]*domain.LocalProduct, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE vendor = $1 ORDER BY id`, vendor)
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.LocalProduct, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, in domain.LocalProductInput) (*domain.LocalProduct, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}

	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}

	query := `INSERT INTO products (name, description, price, category, image, vendor, vendor_product_id, vendor_data, in_stock)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING ` + productColumns

	row := r.db.QueryRowContext(ctx, query,
		*in.Name,
		*in.Description,
		*in.Price,
		*in.Category,
		*in.Image,
		*in.Vendor,
		nullableString(in.VendorProductID),
		nullableJSON(in.VendorData),
		inStock,
	)
	p, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// UpdateProduct writes only the fields set on in.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, in domain.LocalProductInput) (*domain.LocalProduct, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.Name != nil {
		set("name", *in.Name)
	}
	if in.Description != nil {
		set("description", *in.Description)
	}
	if in.Price != nil {
		set("price", *in.Price)
	}
	if in.Category != nil {
		set("category", *in.Category)
	}
	if in.Image != nil {
		set("image", *in.Image)
	}
	if in.Vendor != nil {
		set("vendor", *in.Vendor)
	}
	if in.VendorProductID != nil {
		set("vendor_product_id", *in.VendorProductID)
	}
	if len(in.VendorData) > 0 {
		set("vendor_data", nullableJSON(in.VendorData))
	}
	if in.InStock != nil {
		set("in_stock", *in.InStock)
	}

	if len(sets) == 0 {
		return r.GetProduct(ctx, id)
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), productColumns)

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Seed inserts the sample products in one transaction and returns how many
// were created.
func (r *Repository) Seed(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO products (name, description, price, category, image, vendor, in_stock)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, s := range sampleProducts {
		if _, err := tx.ExecContext(ctx, query, s.name, s.description, s.price, s.category, s.image, s.vendor, true); err != nil {
			return 0, fmt.Errorf("seed product %q: %w", s.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return len(sampleProducts), nil
}

var sampleProducts = []struct {
	name, description, price, category, image, vendor string
}{
	{
		name:        "The Dude Cardigan",
		description: "The classic knit sweater that ties the room together.",
		price:       "89.99",
		category:    "Apparel",
		image:       "https://images.unsplash.com/photo-1434389677669-e08b4cac3105?q=80&w=800&auto=format&fit=crop",
		vendor:      "custom",
	},
	{
		name:        "Abide Bowling Pin Tee",
		description: "Strike! A comfortable tee for league night.",
		price:       "29.99",
		category:    "Apparel",
		image:       "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?q=80&w=800&auto=format&fit=crop",
		vendor:      "printful",
	},
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

// dbTime accepts timestamps as driver time values or as SQLite text.
type dbTime time.Time

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = dbTime(v)
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		*t = dbTime(time.Time{})
		return nil
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range sqliteTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = dbTime(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
