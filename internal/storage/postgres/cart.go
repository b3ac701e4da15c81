package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebastiaan36/louman/internal/domain/cart"
)

const (
	cartColumns = `id, customer_id, product_id, quantity, created_at`

	listCartItemsSQL = `SELECT ` + cartColumns + `
		FROM cart_items WHERE customer_id = $1 ORDER BY created_at`

	getCartItemSQL = `SELECT ` + cartColumns + ` FROM cart_items WHERE id = $1`

	getCartItemByProductSQL = `SELECT ` + cartColumns + `
		FROM cart_items WHERE customer_id = $1 AND product_id = $2`

	createCartItemSQL = `INSERT INTO cart_items (customer_id, product_id, quantity)
		VALUES ($1, $2, $3) RETURNING id, created_at`

	updateCartQuantitySQL = `UPDATE cart_items SET quantity = $2, updated_at = now()
		WHERE id = $1`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE id = $1`

	clearCartSQL = `DELETE FROM cart_items WHERE customer_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ListByCustomer returns the customer's cart items in insertion order.
func (r *CartRepository) ListByCustomer(ctx context.Context, customerID int64) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, listCartItemsSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

// GetByID returns a cart item by its identifier.
func (r *CartRepository) GetByID(ctx context.Context, id int64) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, getCartItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting cart item %d: %w", id, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting cart item %d: %w", id, err)
	}
	return &item, nil
}

// GetByProduct returns the customer's cart item for a product, if any.
func (r *CartRepository) GetByProduct(ctx context.Context, customerID, productID int64) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, getCartItemByProductSQL, customerID, productID)
	if err != nil {
		return nil, fmt.Errorf("getting cart item for product %d: %w", productID, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting cart item for product %d: %w", productID, err)
	}
	return &item, nil
}

// Create persists a new cart item.
func (r *CartRepository) Create(ctx context.Context, item *cart.Item) error {
	err := r.pool.QueryRow(ctx, createCartItemSQL,
		item.CustomerID, item.ProductID, item.Quantity,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating cart item: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of a cart item.
func (r *CartRepository) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	tag, err := r.pool.Exec(ctx, updateCartQuantitySQL, id, quantity)
	if err != nil {
		return fmt.Errorf("updating cart item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// Delete removes a cart item.
func (r *CartRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, deleteCartItemSQL, id); err != nil {
		return fmt.Errorf("deleting cart item %d: %w", id, err)
	}
	return nil
}

// DeleteByCustomer empties the customer's cart.
func (r *CartRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, customerID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var item cart.Item
	err := row.Scan(&item.ID, &item.CustomerID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	return item, err
}
