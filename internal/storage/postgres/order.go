package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/order"
)

const (
	orderColumns = `id, customer_id, delivery_address_id, status, total,
		COALESCE(notes, ''), created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listPendingOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE status = 'pending' ORDER BY id`

	searchOrdersSQL = `SELECT o.id, o.customer_id, o.delivery_address_id, o.status,
			o.total, COALESCE(o.notes, ''), o.created_at, o.updated_at,
			c.company_name, c.delivery_day,
			(SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id)
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE ($1 = '' OR o.status = $1)
		  AND ($2::bigint = 0 OR o.customer_id = $2)
		  AND ($3 = '' OR o.id = $4 OR c.company_name ILIKE '%' || $3 || '%')
		ORDER BY o.created_at DESC`

	listOrderItemsSQL = `SELECT i.id, i.order_id, i.product_id, i.quantity, i.price,
			p.id, p.category_id, p.article_number, p.title, p.description, p.price,
			COALESCE(p.weight, ''), p.in_stock, p.is_active
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id`

	createOrderSQL = `INSERT INTO orders (customer_id, delivery_address_id, status, total, notes)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4) RETURNING id`

	updateOrderItemSQL = `UPDATE order_items SET quantity = $2 WHERE id = $1 AND order_id = $3`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1 AND id = ANY($2)`

	updateOrderTotalsSQL = `UPDATE orders SET total = $2, notes = $3, updated_at = now()
		WHERE id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	bulkUpdateStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = ANY($1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool      *pgxpool.Pool
	customers *CustomerRepository
	addresses *AddressRepository
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{
		pool:      pool,
		customers: NewCustomerRepository(pool),
		addresses: NewAddressRepository(pool),
	}
}

// GetByID returns an order without its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

// GetDetail returns the order aggregate with items, customer and the chosen
// delivery address.
func (r *OrderRepository) GetDetail(ctx context.Context, id int64) (*order.Detail, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.loadDetail(ctx, *o)
}

func (r *OrderRepository) loadDetail(ctx context.Context, o order.Order) (*order.Detail, error) {
	items, err := r.listItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	c, err := r.customers.GetByID(ctx, o.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("loading order %d customer: %w", o.ID, err)
	}

	d := &order.Detail{Order: o, Items: items, Customer: *c}
	if o.DeliveryAddressID != nil {
		addr, err := r.addresses.GetByID(ctx, *o.DeliveryAddressID)
		if err != nil && !errors.Is(err, customer.ErrAddressNotFound) {
			return nil, fmt.Errorf("loading order %d address: %w", o.ID, err)
		}
		d.Address = addr
	}
	return d, nil
}

func (r *OrderRepository) listItems(ctx context.Context, orderID int64) ([]order.ItemDetail, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing order %d items: %w", orderID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.ItemDetail, error) {
		var d order.ItemDetail
		err := row.Scan(
			&d.Item.ID, &d.Item.OrderID, &d.Item.ProductID, &d.Item.Quantity, &d.Item.Price,
			&d.Product.ID, &d.Product.CategoryID, &d.Product.ArticleNumber, &d.Product.Title,
			&d.Product.Description, &d.Product.Price, &d.Product.Weight,
			&d.Product.InStock, &d.Product.IsActive,
		)
		return d, err
	})
}

// Search returns order summaries matching the filter, newest first.
func (r *OrderRepository) Search(ctx context.Context, f order.Filter) ([]order.Summary, error) {
	rows, err := r.pool.Query(ctx, searchOrdersSQL,
		string(f.Status), f.CustomerID, f.Query, f.QueryID,
	)
	if err != nil {
		return nil, fmt.Errorf("searching orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Summary, error) {
		var (
			s   order.Summary
			day *string
		)
		err := row.Scan(
			&s.ID, &s.CustomerID, &s.DeliveryAddressID, &s.Status, &s.Total,
			&s.Notes, &s.CreatedAt, &s.UpdatedAt,
			&s.CompanyName, &day, &s.ItemCount,
		)
		s.DeliveryDay = customer.DeliveryDay(orEmpty(day))
		return s, err
	})
}

// ListPendingDetails returns all pending orders as full aggregates, oldest
// first.
func (r *OrderRepository) ListPendingDetails(ctx context.Context) ([]order.Detail, error) {
	rows, err := r.pool.Query(ctx, listPendingOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing pending orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing pending orders: %w", err)
	}

	details := make([]order.Detail, 0, len(orders))
	for _, o := range orders {
		d, err := r.loadDetail(ctx, o)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

// CreateWithItems inserts the order and its items, and clears the cart of
// clearCartOf when non-zero, in one transaction.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *order.Order, items []order.Item, clearCartOf int64) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, createOrderSQL,
			o.CustomerID, o.DeliveryAddressID, string(o.Status), o.Total, nullIfEmpty(o.Notes),
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		for i := range items {
			items[i].OrderID = o.ID
			err := tx.QueryRow(ctx, createOrderItemSQL,
				o.ID, items[i].ProductID, items[i].Quantity, items[i].Price,
			).Scan(&items[i].ID)
			if err != nil {
				return fmt.Errorf("creating order item: %w", err)
			}
		}

		if clearCartOf != 0 {
			if _, err := tx.Exec(ctx, clearCartSQL, clearCartOf); err != nil {
				return fmt.Errorf("clearing cart: %w", err)
			}
		}
		return nil
	})
}

// UpdateItems applies an item reconciliation and rewrites the order's total
// and notes in one transaction.
func (r *OrderRepository) UpdateItems(ctx context.Context, orderID int64, upserts []order.Item, deleteIDs []int64, total decimal.Decimal, notes string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range upserts {
			if upserts[i].ID != 0 {
				if _, err := tx.Exec(ctx, updateOrderItemSQL, upserts[i].ID, upserts[i].Quantity, orderID); err != nil {
					return fmt.Errorf("updating order item %d: %w", upserts[i].ID, err)
				}
				continue
			}
			err := tx.QueryRow(ctx, createOrderItemSQL,
				orderID, upserts[i].ProductID, upserts[i].Quantity, upserts[i].Price,
			).Scan(&upserts[i].ID)
			if err != nil {
				return fmt.Errorf("creating order item: %w", err)
			}
		}

		if len(deleteIDs) > 0 {
			if _, err := tx.Exec(ctx, deleteOrderItemsSQL, orderID, deleteIDs); err != nil {
				return fmt.Errorf("deleting order items: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, updateOrderTotalsSQL, orderID, total, nullIfEmpty(notes)); err != nil {
			return fmt.Errorf("updating order totals: %w", err)
		}
		return nil
	})
}

// UpdateStatus sets the order's status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// BulkUpdateStatus sets one status on a set of orders.
func (r *OrderRepository) BulkUpdateStatus(ctx context.Context, ids []int64, status order.Status) error {
	if _, err := r.pool.Exec(ctx, bulkUpdateStatusSQL, ids, string(status)); err != nil {
		return fmt.Errorf("bulk updating order status: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.DeliveryAddressID, &o.Status, &o.Total,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}
