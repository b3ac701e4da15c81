package csvio

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/product"
)

// productColumns is the export column order. Imports are matched by header
// name, not position, so partial files work as long as article_number is
// present.
var productColumns = []string{
	"article_number", "title", "description", "price", "weight",
	"category_id", "ingredients", "allergens", "nutrition_facts",
	"in_stock", "is_active",
}

// ProductCSV imports and exports the product catalog.
type ProductCSV struct {
	products product.Repository
}

// NewProductCSV creates a product CSV codec over the given repository.
func NewProductCSV(products product.Repository) *ProductCSV {
	return &ProductCSV{products: products}
}

// Import applies a catalog CSV. Rows are matched to existing products by
// article number: matches are updated, the rest created. For updates only
// columns present in the header with a non-empty cell overwrite existing
// values, so partial exports can be re-imported safely. Bad rows are skipped
// and reported, never aborting the rest of the file.
func (p *ProductCSV) Import(ctx context.Context, r io.Reader) (*Report, error) {
	cr, err := newReader(r)
	if err != nil {
		return nil, err
	}

	first, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	h := parseHeader(first)
	if !h.has("article_number") {
		return nil, errors.New("missing article_number column")
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

		article := h.cell(record, "article_number")
		if article == "" {
			report.skip(line, "empty article_number")
			continue
		}

		existing, err := p.products.GetByArticleNumber(ctx, article)
		switch {
		case err == nil:
			if err := p.applyRow(ctx, existing, h, record, false); err != nil {
				report.skip(line, err.Error())
				continue
			}
			report.Updated++
		case errors.Is(err, product.ErrNotFound):
			created := &product.Product{ArticleNumber: article, InStock: true, IsActive: true}
			if err := p.applyRow(ctx, created, h, record, true); err != nil {
				report.skip(line, err.Error())
				continue
			}
			report.Created++
		default:
			return nil, errors.Wrap(err, "lookup product")
		}
	}
	return report, nil
}

func (p *ProductCSV) applyRow(ctx context.Context, dst *product.Product, h header, record []string, create bool) error {
	if v := h.cell(record, "title"); v != "" {
		dst.Title = v
	}
	if v := h.cell(record, "description"); v != "" {
		dst.Description = v
	}
	if v := h.cell(record, "weight"); v != "" {
		dst.Weight = v
	}
	if v := h.numCell(record, "price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil || price.IsNegative() {
			return errors.Errorf("invalid price %q", v)
		}
		dst.Price = price
	}
	if v := h.numCell(record, "category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Errorf("invalid category_id %q", v)
		}
		dst.CategoryID = &id
	}
	if v := h.cell(record, "ingredients"); v != "" {
		list, err := parseList(v)
		if err != nil {
			return errors.Wrap(err, "ingredients")
		}
		dst.Ingredients = list
	}
	if v := h.cell(record, "allergens"); v != "" {
		list, err := parseList(v)
		if err != nil {
			return errors.Wrap(err, "allergens")
		}
		dst.Allergens = list
	}
	if v := h.cell(record, "nutrition_facts"); v != "" {
		facts, err := parseNutrition(v)
		if err != nil {
			return err
		}
		dst.NutritionFacts = facts
	}
	// Spreadsheets sometimes split the label into one column per value,
	// nutrition_energy, nutrition_fat and so on.
	for name := range h {
		key, ok := strings.CutPrefix(name, "nutrition_")
		if !ok || name == "nutrition_facts" {
			continue
		}
		v := h.numCell(record, name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Errorf("invalid %s %q", name, v)
		}
		if dst.NutritionFacts == nil {
			dst.NutritionFacts = make(map[string]float64)
		}
		dst.NutritionFacts[key] = f
	}
	if v := h.cell(record, "in_stock"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		dst.InStock = b
	}
	if v := h.cell(record, "is_active"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		dst.IsActive = b
	}

	if create {
		if dst.Title == "" {
			return errors.New("new product needs a title")
		}
		if dst.Price.IsZero() {
			return errors.New("new product needs a price")
		}
		return p.products.Create(ctx, dst)
	}
	return p.products.Update(ctx, dst)
}

// Export writes the full catalog as semicolon separated CSV with a UTF-8 BOM.
// With compress set, the stream is gzip compressed.
func (p *ProductCSV) Export(ctx context.Context, w io.Writer, compress bool) error {
	products, err := p.products.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	if compress {
		gz := pgzip.NewWriter(w)
		defer gz.Close()
		w = gz
	}
	if err := writeBOM(w); err != nil {
		return errors.Wrap(err, "write bom")
	}

	cw := csv.NewWriter(w)
	cw.Comma = ExportDelimiter
	if err := cw.Write(productColumns); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, prod := range products {
		record := []string{
			prod.ArticleNumber,
			prod.Title,
			prod.Description,
			prod.Price.StringFixed(2),
			prod.Weight,
			formatID(prod.CategoryID),
			encodeList(prod.Ingredients),
			encodeList(prod.Allergens),
			encodeNutrition(prod.NutritionFacts, sortedKeys(prod.NutritionFacts)),
			formatBool(prod.InStock),
			formatBool(prod.IsActive),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
