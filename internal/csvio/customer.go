package csvio

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/customer"
)

var customerColumns = []string{
	"id", "company_name", "contact_person", "email", "phone_number",
	"street_name", "house_number", "postal_code", "city",
	"kvk_number", "bank_account", "vat_number", "packing_slip_email",
	"customer_category", "discount_percentage", "delivery_day",
	"route_order", "show_on_map",
}

// CustomerCSV imports and exports customer records. The email column lives on
// the linked user account, so the codec needs both repositories.
type CustomerCSV struct {
	customers customer.Repository
	users     auth.UserRepository
}

// NewCustomerCSV creates a customer CSV codec over the given repositories.
func NewCustomerCSV(customers customer.Repository, users auth.UserRepository) *CustomerCSV {
	return &CustomerCSV{customers: customers, users: users}
}

// Import applies bulk edits to existing customers, matched by id. Customers
// are never created through CSV; accounts only enter through registration.
// Only columns present in the header with a non-empty cell overwrite existing
// values. The KvK number and approval stamp are immutable here too.
func (c *CustomerCSV) Import(ctx context.Context, r io.Reader) (*Report, error) {
	cr, err := newReader(r)
	if err != nil {
		return nil, err
	}

	first, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	h := parseHeader(first)
	if !h.has("id") {
		return nil, errors.New("missing id column")
	}

	report := &Report{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.skip(line, err.Error())
			continue
		}

		id, err := strconv.ParseInt(h.numCell(record, "id"), 10, 64)
		if err != nil {
			report.skip(line, "invalid id")
			continue
		}
		existing, err := c.customers.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, customer.ErrNotFound) {
				report.skip(line, "unknown customer")
				continue
			}
			return nil, errors.Wrap(err, "lookup customer")
		}

		if err := applyCustomerRow(existing, h, record); err != nil {
			report.skip(line, err.Error())
			continue
		}
		// The email update goes first so a failure skips the whole row
		// instead of leaving it half applied.
		if v := h.cell(record, "email"); v != "" {
			if err := c.users.UpdateEmail(ctx, existing.UserID, v); err != nil {
				report.skip(line, "email not updated: "+err.Error())
				continue
			}
		}
		if err := c.customers.Update(ctx, existing); err != nil {
			return nil, errors.Wrap(err, "update customer")
		}
		report.Updated++
	}
	return report, nil
}

func applyCustomerRow(dst *customer.Customer, h header, record []string) error {
	text := []struct {
		column string
		field  *string
	}{
		{"company_name", &dst.CompanyName},
		{"contact_person", &dst.ContactPerson},
		{"street_name", &dst.StreetName},
		{"house_number", &dst.HouseNumber},
		{"postal_code", &dst.PostalCode},
		{"city", &dst.City},
		{"vat_number", &dst.VATNumber},
		{"packing_slip_email", &dst.PackingSlipEmail},
	}
	for _, f := range text {
		if v := h.cell(record, f.column); v != "" {
			*f.field = v
		}
	}
	if v := h.numCell(record, "phone_number"); v != "" {
		dst.PhoneNumber = v
	}
	if v := h.numCell(record, "bank_account"); v != "" {
		dst.BankAccount = v
	}

	if v := h.cell(record, "customer_category"); v != "" {
		cat := customer.Category(v)
		if !cat.Valid() {
			return errors.Errorf("unknown category %q", v)
		}
		dst.Category = cat
	}
	if v := h.cell(record, "delivery_day"); v != "" {
		day := customer.DeliveryDay(v)
		if !day.Valid() {
			return errors.Errorf("unknown delivery day %q", v)
		}
		dst.DeliveryDay = day
	}
	if v := h.numCell(record, "discount_percentage"); v != "" {
		pct, err := strconv.Atoi(v)
		if err != nil || (pct != 0 && !customer.ValidDiscount(pct)) {
			return errors.Errorf("invalid discount %q", v)
		}
		dst.Discount = pct
	}
	if v := h.cell(record, "show_on_map"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		dst.ShowOnMap = b
	}
	return nil
}

// Export writes all approved customers as semicolon separated CSV with a
// UTF-8 BOM. Phone numbers get Excel's text marker so leading zeros survive a
// round trip through a spreadsheet.
func (c *CustomerCSV) Export(ctx context.Context, w io.Writer) error {
	customers, err := c.customers.ListApproved(ctx)
	if err != nil {
		return errors.Wrap(err, "list customers")
	}

	if err := writeBOM(w); err != nil {
		return errors.Wrap(err, "write bom")
	}
	cw := csv.NewWriter(w)
	cw.Comma = ExportDelimiter
	if err := cw.Write(customerColumns); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, cust := range customers {
		email := ""
		if u, err := c.users.GetByID(ctx, cust.UserID); err == nil {
			email = u.Email
		}
		record := []string{
			strconv.FormatInt(cust.ID, 10),
			cust.CompanyName,
			cust.ContactPerson,
			email,
			marker(cust.PhoneNumber),
			cust.StreetName,
			cust.HouseNumber,
			cust.PostalCode,
			cust.City,
			marker(cust.KvKNumber),
			cust.BankAccount,
			cust.VATNumber,
			cust.PackingSlipEmail,
			string(cust.Category),
			strconv.Itoa(cust.Discount),
			string(cust.DeliveryDay),
			formatRouteOrder(cust.RouteOrder),
			formatBool(cust.ShowOnMap),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	cw.Flush()
	return cw.Error()
}

func marker(s string) string {
	if s == "" {
		return ""
	}
	return "'" + s
}

func formatRouteOrder(pos *int) string {
	if pos == nil {
		return ""
	}
	return strconv.Itoa(*pos)
}
