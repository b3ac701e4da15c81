package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/product"
)

// ListProducts returns the active catalog priced for the calling customer.
func (h *Handler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}

	products, err := h.products.ListActive(ctx)
	if err != nil {
		return httpError(err)
	}
	favorites, err := h.favorites.ListByCustomer(ctx, cust.ID)
	if err != nil {
		return httpError(err)
	}
	favoriteIDs := make(map[int64]bool, len(favorites))
	for _, f := range favorites {
		favoriteIDs[f.ID] = true
	}

	out := toProductListJSON(products, cust)
	for i := range out {
		out[i].IsFavorite = favoriteIDs[out[i].ID]
	}
	return c.JSON(http.StatusOK, out)
}

// GetProduct returns one active product priced for the calling customer.
func (h *Handler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}

	p, err := h.products.GetByID(ctx, id)
	if err != nil {
		return httpError(err)
	}
	if !p.IsActive {
		return echo.NewHTTPError(http.StatusNotFound, product.ErrNotFound.Error())
	}

	out := toProductJSON(*p, cust)
	out.IsFavorite, err = h.favorites.IsFavorite(ctx, cust.ID, p.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListFavorites returns the customer's favorite products.
func (h *Handler) ListFavorites(c echo.Context) error {
	ctx := c.Request().Context()

	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	favorites, err := h.favorites.ListByCustomer(ctx, cust.ID)
	if err != nil {
		return httpError(err)
	}

	out := toProductListJSON(favorites, cust)
	for i := range out {
		out[i].IsFavorite = true
	}
	return c.JSON(http.StatusOK, out)
}

// ToggleFavorite flips the favorite flag on a product and reports the new
// state.
func (h *Handler) ToggleFavorite(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}

	marked, err := h.favorites.IsFavorite(ctx, cust.ID, id)
	if err != nil {
		return httpError(err)
	}
	if marked {
		if err := h.favorites.Remove(ctx, cust.ID, id); err != nil {
			return httpError(err)
		}
	} else {
		if _, err := h.products.GetByID(ctx, id); err != nil {
			return httpError(err)
		}
		if err := h.favorites.Add(ctx, cust.ID, id); err != nil {
			return httpError(err)
		}
	}
	return c.JSON(http.StatusOK, map[string]bool{"favorite": !marked})
}

type productRequest struct {
	CategoryID     *int64             `json:"category_id"`
	ArticleNumber  string             `json:"article_number"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Price          string             `json:"price"`
	Weight         string             `json:"weight"`
	Ingredients    []string           `json:"ingredients"`
	Allergens      []string           `json:"allergens"`
	NutritionFacts map[string]float64 `json:"nutrition_facts"`
	InStock        *bool              `json:"in_stock"`
	IsActive       *bool              `json:"is_active"`
}

func (r productRequest) price() (decimal.Decimal, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil || price.IsNegative() {
		return decimal.Zero, echo.NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	return price, nil
}

// AdminListProducts returns the full catalog, inactive products included, at
// flat prices.
func (h *Handler) AdminListProducts(c echo.Context) error {
	products, err := h.products.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toProductListJSON(products, nil))
}

// AdminGetProduct returns one product at its flat price.
func (h *Handler) AdminGetProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.products.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toProductJSON(*p, nil))
}

// CreateProduct adds a catalog item. New products default to in stock and
// active unless the request says otherwise.
func (h *Handler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ArticleNumber == "" || req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "article_number and title are required")
	}
	price, err := req.price()
	if err != nil {
		return err
	}
	if err := h.checkCategory(ctx, req.CategoryID); err != nil {
		return err
	}

	p := product.Product{
		CategoryID:     req.CategoryID,
		ArticleNumber:  req.ArticleNumber,
		Title:          req.Title,
		Description:    req.Description,
		Price:          price,
		Weight:         req.Weight,
		Ingredients:    req.Ingredients,
		Allergens:      req.Allergens,
		NutritionFacts: req.NutritionFacts,
		InStock:        req.InStock == nil || *req.InStock,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := h.products.Create(ctx, &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toProductJSON(p, nil))
}

// UpdateProduct overwrites the fields present in the request and leaves the
// rest untouched.
func (h *Handler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := h.products.GetByID(ctx, id)
	if err != nil {
		return httpError(err)
	}

	if req.ArticleNumber != "" {
		p.ArticleNumber = req.ArticleNumber
	}
	if req.Title != "" {
		p.Title = req.Title
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Price != "" {
		if p.Price, err = req.price(); err != nil {
			return err
		}
	}
	if req.CategoryID != nil {
		if err := h.checkCategory(ctx, req.CategoryID); err != nil {
			return err
		}
		p.CategoryID = req.CategoryID
	}
	if req.Weight != "" {
		p.Weight = req.Weight
	}
	if req.Ingredients != nil {
		p.Ingredients = req.Ingredients
	}
	if req.Allergens != nil {
		p.Allergens = req.Allergens
	}
	if req.NutritionFacts != nil {
		p.NutritionFacts = req.NutritionFacts
	}
	if req.InStock != nil {
		p.InStock = *req.InStock
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := h.products.Update(ctx, p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toProductJSON(*p, nil))
}

// DeleteProduct removes a product from the catalog.
func (h *Handler) DeleteProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.products.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := h.categories.Exists(ctx, *id)
	if err != nil {
		return httpError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown category")
	}
	return nil
}

type categoryRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// ListCategories returns all product categories in display order.
func (h *Handler) ListCategories(c echo.Context) error {
	categories, err := h.categories.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	out := make([]categoryJSON, len(categories))
	for i, cat := range categories {
		out[i] = toCategoryJSON(cat)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateCategory adds a product category.
func (h *Handler) CreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	cat := product.Category{Name: req.Name, SortOrder: req.SortOrder}
	if err := h.categories.Create(c.Request().Context(), &cat); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toCategoryJSON(cat))
}

// UpdateCategory renames or reorders a category.
func (h *Handler) UpdateCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	cat := product.Category{ID: id, Name: req.Name, SortOrder: req.SortOrder}
	if err := h.categories.Update(c.Request().Context(), &cat); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCategoryJSON(cat))
}

// DeleteCategory removes a category; its products stay, uncategorized.
func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.categories.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
