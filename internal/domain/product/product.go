package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item that customers can order.
type Product struct {
	ID             int64
	CategoryID     *int64
	ArticleNumber  string
	Title          string
	Description    string
	Price          decimal.Decimal
	Weight         string
	Ingredients    []string
	Allergens      []string
	NutritionFacts map[string]float64
	InStock        bool
	IsActive       bool
	CreatedAt      time.Time
}

// Available reports whether the product can currently be ordered.
func (p Product) Available() bool {
	return p.IsActive && p.InStock
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListActive(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	GetByArticleNumber(ctx context.Context, articleNumber string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}

// Category groups products for catalog display.
type Category struct {
	ID        int64
	Name      string
	SortOrder int
}

// CategoryRepository defines persistence operations for product categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error
}

// FavoriteRepository tracks which products a customer has marked as favorite.
type FavoriteRepository interface {
	ListByCustomer(ctx context.Context, customerID int64) ([]Product, error)
	IsFavorite(ctx context.Context, customerID, productID int64) (bool, error)
	Add(ctx context.Context, customerID, productID int64) error
	Remove(ctx context.Context, customerID, productID int64) error
}
