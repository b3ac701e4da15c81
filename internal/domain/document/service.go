package document

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/domain/pricing"
)

// Service assembles delivery and billing paperwork from order and customer
// data.
type Service struct {
	orders    order.Repository
	customers customer.Repository
}

// NewService creates a document Service.
func NewService(orders order.Repository, customers customer.Repository) *Service {
	return &Service{orders: orders, customers: customers}
}

// BuildPackingSlip assembles the picking document for an order.
func (s *Service) BuildPackingSlip(ctx context.Context, orderID int64) (*PackingSlip, error) {
	d, err := s.orders.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return PackingSlipFor(*d, time.Now()), nil
}

// PackingSlipFor builds the packing slip model from an already loaded order.
// A chosen delivery address overrides the customer's main address.
func PackingSlipFor(d order.Detail, now time.Time) *PackingSlip {
	slip := &PackingSlip{
		OrderID:     d.ID,
		OrderedAt:   d.CreatedAt,
		GeneratedAt: now,
		Customer:    partyFor(d),
		DeliveryDay: d.Customer.DeliveryDay,
		Notes:       d.Notes,
		Lines:       make([]Line, len(d.Items)),
	}
	for i, item := range d.Items {
		slip.Lines[i] = Line{
			ArticleNumber: item.Product.ArticleNumber,
			Title:         item.Product.Title,
			Quantity:      item.Quantity,
		}
	}
	return slip
}

// BuildPendingPackingSlips assembles packing slips for every pending order,
// in order id sequence.
func (s *Service) BuildPendingPackingSlips(ctx context.Context) ([]PackingSlip, error) {
	details, err := s.orders.ListPendingDetails(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list pending orders")
	}

	now := time.Now()
	slips := make([]PackingSlip, len(details))
	for i, d := range details {
		slips[i] = *PackingSlipFor(d, now)
	}
	return slips, nil
}

// BuildInvoice assembles the invoice for an order. The subtotal is the frozen
// order total; VAT is added on top.
func (s *Service) BuildInvoice(ctx context.Context, orderID int64) (*Invoice, error) {
	d, err := s.orders.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	inv := &Invoice{
		Number:    fmt.Sprintf("%d-%05d", now.Year(), d.ID),
		OrderID:   d.ID,
		IssuedAt:  now,
		DueAt:     now.AddDate(0, 0, PaymentTermDays),
		Customer:  partyFor(*d),
		VATNumber: d.Customer.VATNumber,
		Lines:     make([]Line, len(d.Items)),
	}
	subtotal := decimal.Zero
	for i, item := range d.Items {
		sub := item.Subtotal()
		inv.Lines[i] = Line{
			ArticleNumber: item.Product.ArticleNumber,
			Title:         item.Product.Title,
			Quantity:      item.Quantity,
			Price:         item.Price,
			Subtotal:      sub,
		}
		subtotal = subtotal.Add(sub)
	}
	inv.Subtotal = subtotal.Round(2)
	inv.VAT = pricing.VATAmount(inv.Subtotal)
	inv.Total = inv.Subtotal.Add(inv.VAT)
	return inv, nil
}

// BuildProductionList aggregates the items of all pending orders by article
// number.
func (s *Service) BuildProductionList(ctx context.Context) (*ProductionList, error) {
	details, err := s.orders.ListPendingDetails(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list pending orders")
	}

	totals := make(map[string]*ProductionLine)
	for _, d := range details {
		for _, item := range d.Items {
			line, ok := totals[item.Product.ArticleNumber]
			if !ok {
				line = &ProductionLine{
					ArticleNumber: item.Product.ArticleNumber,
					Title:         item.Product.Title,
				}
				totals[item.Product.ArticleNumber] = line
			}
			line.Quantity += item.Quantity
		}
	}

	list := &ProductionList{GeneratedAt: time.Now(), Lines: make([]ProductionLine, 0, len(totals))}
	for _, line := range totals {
		list.Lines = append(list.Lines, *line)
	}
	sort.Slice(list.Lines, func(i, j int) bool {
		return list.Lines[i].ArticleNumber < list.Lines[j].ArticleNumber
	})
	return list, nil
}

// BuildCustomerOverview groups approved customers by delivery day for the
// route sheets. Days without customers are omitted.
func (s *Service) BuildCustomerOverview(ctx context.Context) (*CustomerOverview, error) {
	overview := &CustomerOverview{GeneratedAt: time.Now()}
	for _, day := range customer.DeliveryDays {
		customers, err := s.customers.ListByDeliveryDay(ctx, day)
		if err != nil {
			return nil, errors.Wrap(err, "list customers by day")
		}
		if len(customers) == 0 {
			continue
		}
		section := DaySection{Day: day, Customers: make([]OverviewCustomer, len(customers))}
		for i, c := range customers {
			section.Customers[i] = OverviewCustomer{
				CompanyName: c.CompanyName,
				Address:     fmt.Sprintf("%s %s, %s %s", c.StreetName, c.HouseNumber, c.PostalCode, c.City),
				PhoneNumber: c.PhoneNumber,
				RouteOrder:  c.RouteOrder,
			}
		}
		overview.Sections = append(overview.Sections, section)
	}
	return overview, nil
}

func partyFor(d order.Detail) Party {
	c := d.Customer
	p := Party{
		CompanyName:   c.CompanyName,
		ContactPerson: c.ContactPerson,
		Street:        fmt.Sprintf("%s %s", c.StreetName, c.HouseNumber),
		PostalCode:    c.PostalCode,
		City:          c.City,
		PhoneNumber:   c.PhoneNumber,
	}
	if a := d.Address; a != nil {
		p.Street = fmt.Sprintf("%s %s", a.StreetName, a.HouseNumber)
		p.PostalCode = a.PostalCode
		p.City = a.City
	}
	return p
}
