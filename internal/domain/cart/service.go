package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/pricing"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

// Service implements cart operations for a single customer. Prices shown in
// the cart are always computed live; they are only frozen at checkout.
type Service struct {
	items    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(items Repository, products product.Repository) *Service {
	return &Service{items: items, products: products}
}

// Add puts quantity units of the product in the customer's cart, merging into
// an existing line when the product is already there.
func (s *Service) Add(ctx context.Context, c customer.Customer, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "get product")
	}
	if !p.IsActive {
		return &ProductUnavailableError{Title: p.Title}
	}
	if !p.InStock {
		return &ProductUnavailableError{Title: p.Title, OutOfStock: true}
	}

	existing, err := s.items.GetByProduct(ctx, c.ID, productID)
	switch {
	case err == nil:
		return s.items.UpdateQuantity(ctx, existing.ID, existing.Quantity+quantity)
	case errors.Is(err, ErrItemNotFound):
		return s.items.Create(ctx, &Item{
			CustomerID: c.ID,
			ProductID:  productID,
			Quantity:   quantity,
		})
	default:
		return errors.Wrap(err, "lookup cart item")
	}
}

// SetQuantity replaces the quantity of a cart item owned by the customer.
func (s *Service) SetQuantity(ctx context.Context, c customer.Customer, itemID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.CustomerID != c.ID {
		return ErrForbidden
	}

	return s.items.UpdateQuantity(ctx, itemID, quantity)
}

// Remove deletes a cart item owned by the customer. Removing an item that no
// longer exists is not an error.
func (s *Service) Remove(ctx context.Context, c customer.Customer, itemID int64) error {
	item, err := s.items.GetByID(ctx, itemID)
	if errors.Is(err, ErrItemNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if item.CustomerID != c.ID {
		return ErrForbidden
	}

	return s.items.Delete(ctx, itemID)
}

// Clear empties the customer's cart.
func (s *Service) Clear(ctx context.Context, c customer.Customer) error {
	return s.items.DeleteByCustomer(ctx, c.ID)
}

// ReorderLine is one line of a past order to merge back into the cart.
type ReorderLine struct {
	ProductID int64
	Quantity  int
}

// ReorderResult reports the partial outcome of a reorder: how many lines were
// merged into the cart and which products were skipped because they are no
// longer available.
type ReorderResult struct {
	Added       int
	Unavailable []string
}

// Reorder merges the lines of a past order into the cart. Inactive or
// out-of-stock products are skipped and reported by title; the rest are added
// the same way Add handles them.
func (s *Service) Reorder(ctx context.Context, c customer.Customer, lines []ReorderLine) (ReorderResult, error) {
	var result ReorderResult

	for _, line := range lines {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return result, errors.Wrap(err, "get product")
		}

		if !p.Available() {
			result.Unavailable = append(result.Unavailable, p.Title)
			continue
		}

		existing, err := s.items.GetByProduct(ctx, c.ID, p.ID)
		switch {
		case err == nil:
			if err := s.items.UpdateQuantity(ctx, existing.ID, existing.Quantity+line.Quantity); err != nil {
				return result, errors.Wrap(err, "update cart item")
			}
		case errors.Is(err, ErrItemNotFound):
			err := s.items.Create(ctx, &Item{
				CustomerID: c.ID,
				ProductID:  p.ID,
				Quantity:   line.Quantity,
			})
			if err != nil {
				return result, errors.Wrap(err, "create cart item")
			}
		default:
			return result, errors.Wrap(err, "lookup cart item")
		}

		result.Added++
	}

	return result, nil
}

// Line is a cart item materialized for display: live price, availability and
// subtotal are computed at view time.
type Line struct {
	ItemID    int64
	Product   product.Product
	Quantity  int
	Price     decimal.Decimal
	Subtotal  decimal.Decimal
	Available bool
}

// View is the materialized cart for one customer.
type View struct {
	Lines []Line
	Total decimal.Decimal
}

// View loads the customer's cart with live prices from the pricing engine.
// Unavailable products stay visible but are flagged.
func (s *Service) View(ctx context.Context, c customer.Customer) (*View, error) {
	items, err := s.items.ListByCustomer(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}

	view := &View{Total: decimal.Zero}
	if len(items) == 0 {
		return view, nil
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[int64]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			// Product row vanished; drop the stale cart line from the view.
			continue
		}

		price := pricing.PriceFor(p, c)
		subtotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))

		view.Lines = append(view.Lines, Line{
			ItemID:    item.ID,
			Product:   p,
			Quantity:  item.Quantity,
			Price:     price,
			Subtotal:  subtotal,
			Available: p.Available(),
		})
		view.Total = view.Total.Add(subtotal)
	}

	return view, nil
}
