package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebastiaan36/louman/internal/domain/product"
)

const (
	productColumns = `id, category_id, article_number, title, description, price,
		COALESCE(weight, ''), ingredients, allergens, nutrition_facts, in_stock, is_active, created_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY article_number`

	listActiveProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE is_active = TRUE ORDER BY article_number`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	getProductByArticleSQL = `SELECT ` + productColumns + ` FROM products WHERE article_number = $1`

	createProductSQL = `INSERT INTO products
		(category_id, article_number, title, description, price, weight,
		 ingredients, allergens, nutrition_facts, in_stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	updateProductSQL = `UPDATE products SET
		category_id = $2, article_number = $3, title = $4, description = $5,
		price = $6, weight = $7, ingredients = $8, allergens = $9,
		nutrition_facts = $10, in_stock = $11, is_active = $12, updated_at = now()
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the full catalog ordered by article number.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListActive returns the products visible to customers.
func (r *ProductRepository) ListActive(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listActiveProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByArticleNumber returns a single product by its article number.
func (r *ProductRepository) GetByArticleNumber(ctx context.Context, articleNumber string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByArticleSQL, articleNumber)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", articleNumber, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", articleNumber, err)
	}
	return &p, nil
}

// Create persists a new product and fills in its generated fields.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	ingredients, allergens, nutrition, err := marshalProductJSON(p)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, createProductSQL,
		p.CategoryID, p.ArticleNumber, p.Title, p.Description, p.Price, nullIfEmpty(p.Weight),
		ingredients, allergens, nutrition, p.InStock, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ArticleNumber, err)
	}
	return nil
}

// Update rewrites all mutable product fields.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	ingredients, allergens, nutrition, err := marshalProductJSON(p)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.CategoryID, p.ArticleNumber, p.Title, p.Description,
		p.Price, nullIfEmpty(p.Weight), ingredients, allergens, nutrition,
		p.InStock, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product from the catalog.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func marshalProductJSON(p *product.Product) (ingredients, allergens, nutrition []byte, err error) {
	if p.Ingredients != nil {
		if ingredients, err = json.Marshal(p.Ingredients); err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling ingredients: %w", err)
		}
	}
	if p.Allergens != nil {
		if allergens, err = json.Marshal(p.Allergens); err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling allergens: %w", err)
		}
	}
	if p.NutritionFacts != nil {
		if nutrition, err = json.Marshal(p.NutritionFacts); err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling nutrition facts: %w", err)
		}
	}
	return ingredients, allergens, nutrition, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p           product.Product
		ingredients []byte
		allergens   []byte
		nutrition   []byte
	)
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.ArticleNumber, &p.Title, &p.Description, &p.Price,
		&p.Weight, &ingredients, &allergens, &nutrition, &p.InStock, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return p, err
	}
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &p.Ingredients); err != nil {
			return p, fmt.Errorf("unmarshaling ingredients: %w", err)
		}
	}
	if len(allergens) > 0 {
		if err := json.Unmarshal(allergens, &p.Allergens); err != nil {
			return p, fmt.Errorf("unmarshaling allergens: %w", err)
		}
	}
	if len(nutrition) > 0 {
		if err := json.Unmarshal(nutrition, &p.NutritionFacts); err != nil {
			return p, fmt.Errorf("unmarshaling nutrition facts: %w", err)
		}
	}
	return p, nil
}

const (
	listCategoriesSQL = `SELECT id, name, sort_order FROM categories ORDER BY sort_order, name`
	categoryExistsSQL = `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`
	createCategorySQL = `INSERT INTO categories (name, sort_order) VALUES ($1, $2) RETURNING id`
	updateCategorySQL = `UPDATE categories SET name = $2, sort_order = $3 WHERE id = $1`
	deleteCategorySQL = `DELETE FROM categories WHERE id = $1`
)

var _ product.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements product.CategoryRepository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns all categories in display order.
func (r *CategoryRepository) List(ctx context.Context) ([]product.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Category, error) {
		var c product.Category
		err := row.Scan(&c.ID, &c.Name, &c.SortOrder)
		return c, err
	})
}

// Exists reports whether a category with the given id exists.
func (r *CategoryRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, categoryExistsSQL, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking category %d: %w", id, err)
	}
	return exists, nil
}

// Create persists a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *product.Category) error {
	if err := r.pool.QueryRow(ctx, createCategorySQL, c.Name, c.SortOrder).Scan(&c.ID); err != nil {
		return fmt.Errorf("creating category %q: %w", c.Name, err)
	}
	return nil
}

// Update rewrites a category.
func (r *CategoryRepository) Update(ctx context.Context, c *product.Category) error {
	if _, err := r.pool.Exec(ctx, updateCategorySQL, c.ID, c.Name, c.SortOrder); err != nil {
		return fmt.Errorf("updating category %d: %w", c.ID, err)
	}
	return nil
}

// Delete removes a category; products keep existing with a cleared category.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, deleteCategorySQL, id); err != nil {
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	return nil
}

const (
	listFavoritesSQL = `SELECT ` + productColumns + ` FROM products
		WHERE id IN (SELECT product_id FROM product_favorites WHERE customer_id = $1)
		ORDER BY article_number`

	isFavoriteSQL = `SELECT EXISTS (
		SELECT 1 FROM product_favorites WHERE customer_id = $1 AND product_id = $2)`

	addFavoriteSQL = `INSERT INTO product_favorites (customer_id, product_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	removeFavoriteSQL = `DELETE FROM product_favorites WHERE customer_id = $1 AND product_id = $2`
)

var _ product.FavoriteRepository = (*FavoriteRepository)(nil)

// FavoriteRepository implements product.FavoriteRepository backed by PostgreSQL.
type FavoriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavoriteRepository returns a FavoriteRepository that uses the given pool.
func NewFavoriteRepository(pool *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

// ListByCustomer returns the customer's favorite products.
func (r *FavoriteRepository) ListByCustomer(ctx context.Context, customerID int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listFavoritesSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// IsFavorite reports whether the customer favorited the product.
func (r *FavoriteRepository) IsFavorite(ctx context.Context, customerID, productID int64) (bool, error) {
	var is bool
	if err := r.pool.QueryRow(ctx, isFavoriteSQL, customerID, productID).Scan(&is); err != nil {
		return false, fmt.Errorf("checking favorite: %w", err)
	}
	return is, nil
}

// Add marks a product as favorite; already favorited is a no-op.
func (r *FavoriteRepository) Add(ctx context.Context, customerID, productID int64) error {
	if _, err := r.pool.Exec(ctx, addFavoriteSQL, customerID, productID); err != nil {
		return fmt.Errorf("adding favorite: %w", err)
	}
	return nil
}

// Remove unmarks a favorite.
func (r *FavoriteRepository) Remove(ctx context.Context, customerID, productID int64) error {
	if _, err := r.pool.Exec(ctx, removeFavoriteSQL, customerID, productID); err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	return nil
}
