package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/sebastiaan36/louman/internal/domain/auth"
)

// Sentinel errors for customer operations.
var (
	ErrNotFound        = errors.New("customer not found")
	ErrAlreadyApproved = errors.New("customer already approved")
	ErrDuplicateKvK    = errors.New("kvk number already registered")
	ErrDuplicateEmail  = errors.New("email already registered")
)

// Category classifies a customer for reporting. Pricing is flat, so the
// category no longer affects prices.
type Category string

const (
	CategoryWholesale    Category = "wholesale"
	CategorySandwichShop Category = "sandwich_shop"
	CategoryCatering     Category = "catering"
)

// Valid reports whether c is one of the known customer categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWholesale, CategorySandwichShop, CategoryCatering:
		return true
	}
	return false
}

// DeliveryDay is the weekday a customer receives deliveries, or "pickup" for
// customers who collect orders themselves.
type DeliveryDay string

const (
	DayMonday    DeliveryDay = "monday"
	DayTuesday   DeliveryDay = "tuesday"
	DayWednesday DeliveryDay = "wednesday"
	DayThursday  DeliveryDay = "thursday"
	DayFriday    DeliveryDay = "friday"
	DaySaturday  DeliveryDay = "saturday"
	DaySunday    DeliveryDay = "sunday"
	DayPickup    DeliveryDay = "pickup"
)

// DeliveryDays lists all valid delivery days in route-planning order.
var DeliveryDays = []DeliveryDay{
	DayMonday, DayTuesday, DayWednesday, DayThursday,
	DayFriday, DaySaturday, DaySunday, DayPickup,
}

// Valid reports whether d is one of the known delivery days.
func (d DeliveryDay) Valid() bool {
	for _, day := range DeliveryDays {
		if d == day {
			return true
		}
	}
	return false
}

// Index returns the position of d in the route-planning order. Unknown days
// sort last.
func (d DeliveryDay) Index() int {
	for i, day := range DeliveryDays {
		if d == day {
			return i
		}
	}
	return len(DeliveryDays)
}

// ValidDiscount reports whether pct is an allowed discount percentage.
// Zero means "no discount" and is handled separately.
func ValidDiscount(pct int) bool {
	return pct >= 1 && pct <= 5
}

// Customer is a wholesale buyer. A customer starts unapproved (ApprovedAt nil)
// and cannot transact until staff approval assigns a category and delivery day.
type Customer struct {
	ID               int64
	UserID           int64
	CompanyName      string
	ContactPerson    string
	PhoneNumber      string
	StreetName       string
	HouseNumber      string
	PostalCode       string
	City             string
	KvKNumber        string
	BankAccount      string
	VATNumber        string
	PackingSlipEmail string
	ApprovedAt       *time.Time
	ApprovedBy       *int64
	Category         Category
	// Discount is a whole percentage in 1..5; zero means no discount.
	Discount    int
	DeliveryDay DeliveryDay
	RouteOrder  *int
	ShowOnMap   bool
	CreatedAt   time.Time
}

// Approved reports whether staff have approved this customer.
func (c Customer) Approved() bool {
	return c.ApprovedAt != nil
}

// Repository defines persistence operations for customers.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByUserID(ctx context.Context, userID int64) (*Customer, error)
	ListPending(ctx context.Context) ([]Customer, error)
	ListApproved(ctx context.Context) ([]Customer, error)
	ListByDeliveryDay(ctx context.Context, day DeliveryDay) ([]Customer, error)
	KvKExists(ctx context.Context, kvkNumber string) (bool, error)
	Update(ctx context.Context, c *Customer) error

	// CreateWithUser inserts the user account, the customer record and the
	// customer's API key in a single transaction.
	CreateWithUser(ctx context.Context, u *auth.User, c *Customer, keyHash string) error

	// SetRouteOrder assigns 1-based route positions to the given customers on
	// the given day, in list order, within one transaction. Customers not in
	// the list keep their previous position.
	SetRouteOrder(ctx context.Context, day DeliveryDay, customerIDs []int64) error
}

// DeliveryAddress is an alternative drop-off location for a customer. At most
// one address per customer may be the default.
type DeliveryAddress struct {
	ID          int64
	CustomerID  int64
	Name        string
	StreetName  string
	HouseNumber string
	PostalCode  string
	City        string
	Notes       string
	IsDefault   bool
	CreatedAt   time.Time
}

// ErrAddressNotFound is returned when a requested delivery address does not exist.
var ErrAddressNotFound = errors.New("delivery address not found")

// AddressRepository defines persistence operations for delivery addresses.
type AddressRepository interface {
	ListByCustomer(ctx context.Context, customerID int64) ([]DeliveryAddress, error)
	GetByID(ctx context.Context, id int64) (*DeliveryAddress, error)
	Create(ctx context.Context, a *DeliveryAddress) error
	Update(ctx context.Context, a *DeliveryAddress) error
	Delete(ctx context.Context, id int64) error

	// ClearDefault unsets is_default on every address of the customer.
	ClearDefault(ctx context.Context, customerID int64) error
}
