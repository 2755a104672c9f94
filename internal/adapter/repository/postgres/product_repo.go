package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// ProductRepository implements usecase.ProductRepository.
type ProductRepository struct {
	db dbtx
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return newProductRepositoryWithDB(pool)
}

func newProductRepositoryWithDB(db dbtx) *ProductRepository {
	return &ProductRepository{db: db}
}

// Resolve returns the canonical product for lookup, creating it when it is
// referenced by barcode or name and does not exist yet.
func (r *ProductRepository) Resolve(ctx context.Context, tx usecase.Transaction, lookup domain.ProductLookup, newID string) (*domain.Product, error) {
	q := pgxTx(tx)

	switch {
	case lookup.ID != "":
		return scanProduct(q.QueryRow(ctx, `
			SELECT id, barcode, name FROM products WHERE id = $1
		`, lookup.ID))

	case lookup.Barcode != "":
		name := lookup.Name
		if name == "" {
			name = lookup.Barcode
		}
		// The no-op update makes RETURNING yield the existing row on conflict.
		return scanProduct(q.QueryRow(ctx, `
			INSERT INTO products (id, barcode, name, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (barcode) DO UPDATE SET barcode = EXCLUDED.barcode
			RETURNING id, barcode, name
		`, newID, lookup.Barcode, name, time.Now().UTC()))

	case lookup.Name != "":
		product, err := scanProduct(q.QueryRow(ctx, `
			SELECT id, barcode, name FROM products
			WHERE lower(name) = lower($1)
			ORDER BY created_at
			LIMIT 1
		`, lookup.Name))
		if !errors.Is(err, domain.ErrProductNotFound) {
			return product, err
		}

		return scanProduct(q.QueryRow(ctx, `
			INSERT INTO products (id, barcode, name, created_at)
			VALUES ($1, NULL, $2, $3)
			RETURNING id, barcode, name
		`, newID, lookup.Name, time.Now().UTC()))

	default:
		return nil, fmt.Errorf("%w: product needs an id, barcode or name", domain.ErrInvalidValue)
	}
}

// GetDetails returns a product with the price of its most recent purchase.
func (r *ProductRepository) GetDetails(ctx context.Context, id string) (*domain.ProductDetails, error) {
	return scanDetails(r.db.QueryRow(ctx, `
		SELECT p.id, p.barcode, p.name, last.unit_price, last.quantity, last.created_at
		FROM products p
		LEFT JOIN LATERAL (
			SELECT unit_price, quantity, created_at
			FROM product_instances
			WHERE product_id = p.id
			ORDER BY created_at DESC
			LIMIT 1
		) last ON true
		WHERE p.id = $1
	`, id))
}

// SearchLatestByName returns the most recently bought product whose name
// starts with name, case-insensitively.
func (r *ProductRepository) SearchLatestByName(ctx context.Context, name string) (*domain.ProductDetails, error) {
	return scanDetails(r.db.QueryRow(ctx, `
		SELECT p.id, p.barcode, p.name, pi.unit_price, pi.quantity, pi.created_at
		FROM product_instances pi
		JOIN products p ON p.id = pi.product_id
		WHERE lower(p.name) LIKE $1 ESCAPE '\'
		ORDER BY pi.created_at DESC
		LIMIT 1
	`, likePrefix(name)))
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Barcode, &p.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDetails(row pgx.Row) (*domain.ProductDetails, error) {
	var (
		d        domain.ProductDetails
		price    pgtype.Numeric
		quantity pgtype.Int4
		seen     pgtype.Timestamptz
	)
	err := row.Scan(&d.Product.ID, &d.Product.Barcode, &d.Product.Name, &price, &quantity, &seen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	d.LastUnitPrice = numericToDecimal(price)
	if quantity.Valid {
		d.LastQuantity = int(quantity.Int32)
	}
	d.LastSeen = timestamptzPtr(seen)
	return &d, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(s string) string {
	return likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
