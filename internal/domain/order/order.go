package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

// Sentinel errors for order operations.
var (
	ErrNotFound       = errors.New("order not found")
	ErrForbidden      = errors.New("order belongs to another customer")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidAddress = errors.New("delivery address does not belong to this customer")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrLocked         = errors.New("order can no longer be modified")
	ErrEmptyItems     = errors.New("order needs at least one item")
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists all valid order statuses.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Locked reports whether an order in this status is immutable.
func (s Status) Locked() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order is a placed order. Total is denormalized and kept equal to the sum of
// item price times quantity after every item mutation.
type Order struct {
	ID                int64
	CustomerID        int64
	DeliveryAddressID *int64
	Status            Status
	Total             decimal.Decimal
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Item is one order line. Price is the snapshot taken when the line was
// created; later catalog price changes never touch it.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// Subtotal returns price times quantity for this line.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemDetail pairs an order line with its product for display and documents.
type ItemDetail struct {
	Item
	Product product.Product
}

// Detail is an order aggregate loaded eagerly with its items, customer and
// optional delivery address.
type Detail struct {
	Order
	Items    []ItemDetail
	Customer customer.Customer
	Address  *customer.DeliveryAddress
}

// Summary is a listing row: the order plus the customer fields shown in
// overviews.
type Summary struct {
	Order
	CompanyName string
	DeliveryDay customer.DeliveryDay
	ItemCount   int
}

// Filter narrows an order search. QueryID and Query are alternatives derived
// from one search box: a numeric input matches the order id, any input matches
// company names case-insensitively. CustomerID zero means all customers.
type Filter struct {
	Status     Status
	Query      string
	QueryID    int64
	CustomerID int64
}

// Repository defines persistence operations for orders. Multi-row mutations
// run in a single transaction and roll back completely on failure.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetDetail(ctx context.Context, id int64) (*Detail, error)
	Search(ctx context.Context, f Filter) ([]Summary, error)
	ListPendingDetails(ctx context.Context) ([]Detail, error)

	// CreateWithItems inserts the order and its items, and clears the cart of
	// clearCartOf when non-zero, in one transaction.
	CreateWithItems(ctx context.Context, o *Order, items []Item, clearCartOf int64) error

	// UpdateItems applies an item reconciliation in one transaction: lines
	// with an ID update quantity in place, lines without an ID are inserted,
	// deleteIDs are removed, and the order's total and notes are rewritten.
	UpdateItems(ctx context.Context, orderID int64, upserts []Item, deleteIDs []int64, total decimal.Decimal, notes string) error

	UpdateStatus(ctx context.Context, id int64, status Status) error
	BulkUpdateStatus(ctx context.Context, ids []int64, status Status) error
}

// Notifier dispatches order notifications. Implementations are best-effort:
// they log failures and never return them, so a lost email cannot undo an
// order.
type Notifier interface {
	OrderPlaced(ctx context.Context, d Detail)
	OrderShipped(ctx context.Context, d Detail)
}
