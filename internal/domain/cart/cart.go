package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for cart operations.
var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrForbidden       = errors.New("cart item belongs to another customer")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// ProductUnavailableError indicates a product cannot be added to the cart
// because it is inactive or out of stock.
type ProductUnavailableError struct {
	Title      string
	OutOfStock bool
}

func (e *ProductUnavailableError) Error() string {
	if e.OutOfStock {
		return fmt.Sprintf("product %q is out of stock", e.Title)
	}
	return fmt.Sprintf("product %q is no longer available", e.Title)
}

// Item is one pending product selection in a customer's cart. There is at most
// one item per (customer, product) pair; adding the same product again
// increments the quantity instead.
type Item struct {
	ID         int64
	CustomerID int64
	ProductID  int64
	Quantity   int
	CreatedAt  time.Time
}

// Repository defines persistence operations for cart items.
type Repository interface {
	ListByCustomer(ctx context.Context, customerID int64) ([]Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	GetByProduct(ctx context.Context, customerID, productID int64) (*Item, error)
	Create(ctx context.Context, item *Item) error
	UpdateQuantity(ctx context.Context, id int64, quantity int) error
	Delete(ctx context.Context, id int64) error
	DeleteByCustomer(ctx context.Context, customerID int64) error
}
