package document

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/customer"
)

// Party is the addressee block printed on paperwork.
type Party struct {
	CompanyName   string
	ContactPerson string
	Street        string
	PostalCode    string
	City          string
	PhoneNumber   string
}

// AddressLine returns the street line of the party block.
func (p Party) AddressLine() string {
	return fmt.Sprintf("%s, %s %s", p.Street, p.PostalCode, p.City)
}

// Line is one printed order line.
type Line struct {
	ArticleNumber string
	Title         string
	Quantity      int
	Price         decimal.Decimal
	Subtotal      decimal.Decimal
}

// PackingSlip is the warehouse picking document for one order. It carries no
// prices; pickers work from quantities and article numbers.
type PackingSlip struct {
	OrderID     int64
	OrderedAt   time.Time
	GeneratedAt time.Time
	Customer    Party
	DeliveryDay customer.DeliveryDay
	Notes       string
	Lines       []Line
}

// Invoice is the billing document for one order. Order prices are VAT
// exclusive; VAT is added on top at the reduced foodstuffs rate.
type Invoice struct {
	Number    string
	OrderID   int64
	IssuedAt  time.Time
	DueAt     time.Time
	Customer  Party
	VATNumber string
	Lines     []Line
	Subtotal  decimal.Decimal
	VAT       decimal.Decimal
	Total     decimal.Decimal
}

// PaymentTermDays is the invoice payment window.
const PaymentTermDays = 14

// ProductionLine is one aggregated article on the production list.
type ProductionLine struct {
	ArticleNumber string
	Title         string
	Quantity      int
}

// ProductionList totals every article across all pending orders, so the
// butchery knows what to produce for the coming delivery round.
type ProductionList struct {
	GeneratedAt time.Time
	Lines       []ProductionLine
}

// OverviewCustomer is one row on the route overview.
type OverviewCustomer struct {
	CompanyName string
	Address     string
	PhoneNumber string
	RouteOrder  *int
}

// DaySection groups the overview rows of one delivery day, in route order with
// unpositioned customers last.
type DaySection struct {
	Day       customer.DeliveryDay
	Customers []OverviewCustomer
}

// CustomerOverview lists all approved customers grouped by delivery day, for
// the drivers' route sheets.
type CustomerOverview struct {
	GeneratedAt time.Time
	Sections    []DaySection
}

// Renderer turns document models into printable bytes.
type Renderer interface {
	PackingSlip(s PackingSlip) ([]byte, error)
	Invoice(inv Invoice) ([]byte, error)
	ProductionList(l ProductionList) ([]byte, error)
	CustomerOverview(o CustomerOverview) ([]byte, error)
}
