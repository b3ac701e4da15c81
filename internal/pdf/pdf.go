// Package pdf renders delivery and billing paperwork as PDF.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-pdf/fpdf"

	"github.com/sebastiaan36/louman/internal/domain/document"
)

const (
	companyName    = "Slagerij Louman"
	companyAddress = "Haarlemmerstraat 76, 1013 ES Amsterdam"
	companyPhone   = "020-624 67 00"

	marginX     = 15.0
	lineHeight  = 6.0
	tableHeight = 7.0
)

// Renderer renders document models with fpdf.
type Renderer struct{}

var _ document.Renderer = Renderer{}

// NewRenderer creates a PDF renderer.
func NewRenderer() Renderer { return Renderer{} }

func newPage() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginX, 15, marginX)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	return pdf
}

func header(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, companyName)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, lineHeight, companyAddress)
	pdf.Ln(4)
	pdf.Cell(0, lineHeight, companyPhone)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(12)
}

func party(pdf *fpdf.Fpdf, p document.Party) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, lineHeight, p.CompanyName)
	pdf.Ln(lineHeight)
	pdf.SetFont("Helvetica", "", 10)
	if p.ContactPerson != "" {
		pdf.Cell(0, lineHeight, p.ContactPerson)
		pdf.Ln(lineHeight)
	}
	pdf.Cell(0, lineHeight, p.Street)
	pdf.Ln(lineHeight)
	pdf.Cell(0, lineHeight, fmt.Sprintf("%s %s", p.PostalCode, p.City))
	pdf.Ln(lineHeight)
	if p.PhoneNumber != "" {
		pdf.Cell(0, lineHeight, p.PhoneNumber)
		pdf.Ln(lineHeight)
	}
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}

// PackingSlip renders the warehouse picking document for one order.
func (Renderer) PackingSlip(s document.PackingSlip) ([]byte, error) {
	pdf := newPage()
	header(pdf, fmt.Sprintf("Packing slip - order #%d", s.OrderID))
	party(pdf, s.Customer)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, lineHeight, fmt.Sprintf("Ordered: %s", s.OrderedAt.Format("02-01-2006")))
	pdf.Ln(lineHeight)
	pdf.Cell(0, lineHeight, fmt.Sprintf("Delivery day: %s", s.DeliveryDay))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(20, tableHeight, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, tableHeight, "Article", "1", 0, "L", true, 0, "")
	pdf.CellFormat(125, tableHeight, "Product", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range s.Lines {
		pdf.CellFormat(20, tableHeight, strconv.Itoa(line.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, tableHeight, line.ArticleNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(125, tableHeight, line.Title, "1", 1, "L", false, 0, "")
	}

	if s.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, lineHeight, "Notes")
		pdf.Ln(lineHeight)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, s.Notes, "", "L", false)
	}
	return output(pdf)
}

// Invoice renders the billing document for one order.
func (Renderer) Invoice(inv document.Invoice) ([]byte, error) {
	pdf := newPage()
	header(pdf, fmt.Sprintf("Invoice %s", inv.Number))
	party(pdf, inv.Customer)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, lineHeight, fmt.Sprintf("Invoice date: %s", inv.IssuedAt.Format("02-01-2006")))
	pdf.Ln(lineHeight)
	pdf.Cell(0, lineHeight, fmt.Sprintf("Due date: %s", inv.DueAt.Format("02-01-2006")))
	pdf.Ln(lineHeight)
	if inv.VATNumber != "" {
		pdf.Cell(0, lineHeight, fmt.Sprintf("VAT number: %s", inv.VATNumber))
		pdf.Ln(lineHeight)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(15, tableHeight, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, tableHeight, "Article", "1", 0, "L", true, 0, "")
	pdf.CellFormat(85, tableHeight, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, tableHeight, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, tableHeight, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range inv.Lines {
		pdf.CellFormat(15, tableHeight, strconv.Itoa(line.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, tableHeight, line.ArticleNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(85, tableHeight, line.Title, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, tableHeight, line.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, tableHeight, line.Subtotal.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	totals := []struct {
		label, value string
		bold         bool
	}{
		{"Subtotal", inv.Subtotal.StringFixed(2), false},
		{"VAT 9%", inv.VAT.StringFixed(2), false},
		{"Total", inv.Total.StringFixed(2), true},
	}
	for _, row := range totals {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(130, tableHeight, "", "", 0, "", false, 0, "")
		pdf.CellFormat(25, tableHeight, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(25, tableHeight, row.value, "T", 1, "R", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, lineHeight, fmt.Sprintf("Please pay within %d days.", document.PaymentTermDays))
	return output(pdf)
}

// ProductionList renders the aggregated production quantities.
func (Renderer) ProductionList(l document.ProductionList) ([]byte, error) {
	pdf := newPage()
	header(pdf, fmt.Sprintf("Production list %s", l.GeneratedAt.Format("02-01-2006")))

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(35, tableHeight, "Article", "1", 0, "L", true, 0, "")
	pdf.CellFormat(120, tableHeight, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, tableHeight, "Quantity", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range l.Lines {
		pdf.CellFormat(35, tableHeight, line.ArticleNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(120, tableHeight, line.Title, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, tableHeight, strconv.Itoa(line.Quantity), "1", 1, "R", false, 0, "")
	}
	return output(pdf)
}

// CustomerOverview renders the route sheets, two customers per row.
func (Renderer) CustomerOverview(o document.CustomerOverview) ([]byte, error) {
	pdf := newPage()
	header(pdf, fmt.Sprintf("Customer overview %s", o.GeneratedAt.Format("02-01-2006")))

	colWidth := (210 - 2*marginX) / 2
	for _, section := range o.Sections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(235, 235, 235)
		pdf.CellFormat(0, 8, string(section.Day), "1", 1, "L", true, 0, "")
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "", 9)
		for i := 0; i < len(section.Customers); i += 2 {
			pair := section.Customers[i:min(i+2, len(section.Customers))]
			for _, c := range pair {
				pdf.CellFormat(colWidth, 5, overviewTitle(c), "", 0, "L", false, 0, "")
			}
			pdf.Ln(5)
			for _, c := range pair {
				pdf.CellFormat(colWidth, 5, c.Address, "", 0, "L", false, 0, "")
			}
			pdf.Ln(5)
			for _, c := range pair {
				pdf.CellFormat(colWidth, 5, c.PhoneNumber, "", 0, "L", false, 0, "")
			}
			pdf.Ln(8)
		}
		pdf.Ln(4)
	}
	return output(pdf)
}

func overviewTitle(c document.OverviewCustomer) string {
	if c.RouteOrder != nil {
		return fmt.Sprintf("%d. %s", *c.RouteOrder, c.CompanyName)
	}
	return c.CompanyName
}
