package handler

import (
	"time"

	"github.com/sebastiaan36/louman/internal/domain/cart"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/domain/pricing"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

// Monetary amounts are serialized as strings with two decimals so clients
// never touch binary floats.

type productJSON struct {
	ID             int64              `json:"id"`
	CategoryID     *int64             `json:"category_id,omitempty"`
	ArticleNumber  string             `json:"article_number"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Price          string             `json:"price"`
	Weight         string             `json:"weight,omitempty"`
	Ingredients    []string           `json:"ingredients,omitempty"`
	Allergens      []string           `json:"allergens,omitempty"`
	NutritionFacts map[string]float64 `json:"nutrition_facts,omitempty"`
	InStock        bool               `json:"in_stock"`
	IsActive       bool               `json:"is_active"`
	IsFavorite     bool               `json:"is_favorite,omitempty"`
}

// toProductJSON renders a product with the customer's personal price. A nil
// customer means the flat catalog price, as staff see it.
func toProductJSON(p product.Product, c *customer.Customer) productJSON {
	price := p.Price.StringFixed(2)
	if c != nil {
		price = pricing.PriceStringFor(p, *c)
	}
	return productJSON{
		ID:             p.ID,
		CategoryID:     p.CategoryID,
		ArticleNumber:  p.ArticleNumber,
		Title:          p.Title,
		Description:    p.Description,
		Price:          price,
		Weight:         p.Weight,
		Ingredients:    p.Ingredients,
		Allergens:      p.Allergens,
		NutritionFacts: p.NutritionFacts,
		InStock:        p.InStock,
		IsActive:       p.IsActive,
	}
}

func toProductListJSON(products []product.Product, c *customer.Customer) []productJSON {
	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = toProductJSON(p, c)
	}
	return out
}

type categoryJSON struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func toCategoryJSON(c product.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder}
}

type cartLineJSON struct {
	ItemID    int64  `json:"item_id"`
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
	Available bool   `json:"available"`
}

type cartJSON struct {
	Lines []cartLineJSON `json:"lines"`
	Total string         `json:"total"`
}

func toCartJSON(v *cart.View) cartJSON {
	out := cartJSON{Lines: make([]cartLineJSON, len(v.Lines)), Total: v.Total.StringFixed(2)}
	for i, l := range v.Lines {
		out.Lines[i] = cartLineJSON{
			ItemID:    l.ItemID,
			ProductID: l.Product.ID,
			Title:     l.Product.Title,
			Quantity:  l.Quantity,
			Price:     l.Price.StringFixed(2),
			Subtotal:  l.Subtotal.StringFixed(2),
			Available: l.Available,
		}
	}
	return out
}

type orderSummaryJSON struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	CompanyName string    `json:"company_name,omitempty"`
	DeliveryDay string    `json:"delivery_day,omitempty"`
	Status      string    `json:"status"`
	Total       string    `json:"total"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func toOrderSummaryJSON(s order.Summary) orderSummaryJSON {
	return orderSummaryJSON{
		ID:          s.ID,
		CustomerID:  s.CustomerID,
		CompanyName: s.CompanyName,
		DeliveryDay: string(s.DeliveryDay),
		Status:      string(s.Status),
		Total:       s.Total.StringFixed(2),
		ItemCount:   s.ItemCount,
		CreatedAt:   s.CreatedAt,
	}
}

type orderItemJSON struct {
	ID            int64  `json:"id"`
	ProductID     int64  `json:"product_id"`
	ArticleNumber string `json:"article_number"`
	Title         string `json:"title"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	Subtotal      string `json:"subtotal"`
}

type orderDetailJSON struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id"`
	CompanyName string          `json:"company_name"`
	Status      string          `json:"status"`
	Items       []orderItemJSON `json:"items"`
	Address     *addressJSON    `json:"delivery_address,omitempty"`
	Total       string          `json:"total"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toOrderDetailJSON(d *order.Detail) orderDetailJSON {
	out := orderDetailJSON{
		ID:          d.ID,
		CustomerID:  d.CustomerID,
		CompanyName: d.Customer.CompanyName,
		Status:      string(d.Status),
		Items:       make([]orderItemJSON, len(d.Items)),
		Total:       d.Total.StringFixed(2),
		Notes:       d.Notes,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for i, it := range d.Items {
		out.Items[i] = orderItemJSON{
			ID:            it.ID,
			ProductID:     it.ProductID,
			ArticleNumber: it.Product.ArticleNumber,
			Title:         it.Product.Title,
			Quantity:      it.Quantity,
			Price:         it.Price.StringFixed(2),
			Subtotal:      it.Subtotal().StringFixed(2),
		}
	}
	if d.Address != nil {
		a := toAddressJSON(*d.Address)
		out.Address = &a
	}
	return out
}

type customerJSON struct {
	ID               int64      `json:"id"`
	CompanyName      string     `json:"company_name"`
	ContactPerson    string     `json:"contact_person"`
	PhoneNumber      string     `json:"phone_number"`
	StreetName       string     `json:"street_name"`
	HouseNumber      string     `json:"house_number"`
	PostalCode       string     `json:"postal_code"`
	City             string     `json:"city"`
	KvKNumber        string     `json:"kvk_number"`
	BankAccount      string     `json:"bank_account,omitempty"`
	VATNumber        string     `json:"vat_number,omitempty"`
	PackingSlipEmail string     `json:"packing_slip_email,omitempty"`
	Approved         bool       `json:"approved"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	Category         string     `json:"category,omitempty"`
	Discount         int        `json:"discount_percentage,omitempty"`
	DeliveryDay      string     `json:"delivery_day,omitempty"`
	RouteOrder       *int       `json:"route_order,omitempty"`
	ShowOnMap        bool       `json:"show_on_map"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toCustomerJSON(c customer.Customer) customerJSON {
	return customerJSON{
		ID:               c.ID,
		CompanyName:      c.CompanyName,
		ContactPerson:    c.ContactPerson,
		PhoneNumber:      c.PhoneNumber,
		StreetName:       c.StreetName,
		HouseNumber:      c.HouseNumber,
		PostalCode:       c.PostalCode,
		City:             c.City,
		KvKNumber:        c.KvKNumber,
		BankAccount:      c.BankAccount,
		VATNumber:        c.VATNumber,
		PackingSlipEmail: c.PackingSlipEmail,
		Approved:         c.Approved(),
		ApprovedAt:       c.ApprovedAt,
		Category:         string(c.Category),
		Discount:         c.Discount,
		DeliveryDay:      string(c.DeliveryDay),
		RouteOrder:       c.RouteOrder,
		ShowOnMap:        c.ShowOnMap,
		CreatedAt:        c.CreatedAt,
	}
}

func toCustomerListJSON(customers []customer.Customer) []customerJSON {
	out := make([]customerJSON, len(customers))
	for i, c := range customers {
		out[i] = toCustomerJSON(c)
	}
	return out
}

type addressJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	StreetName  string `json:"street_name"`
	HouseNumber string `json:"house_number"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	Notes       string `json:"notes,omitempty"`
	IsDefault   bool   `json:"is_default"`
}

func toAddressJSON(a customer.DeliveryAddress) addressJSON {
	return addressJSON{
		ID:          a.ID,
		Name:        a.Name,
		StreetName:  a.StreetName,
		HouseNumber: a.HouseNumber,
		PostalCode:  a.PostalCode,
		City:        a.City,
		Notes:       a.Notes,
		IsDefault:   a.IsDefault,
	}
}

func toAddressListJSON(addrs []customer.DeliveryAddress) []addressJSON {
	out := make([]addressJSON, len(addrs))
	for i, a := range addrs {
		out[i] = toAddressJSON(a)
	}
	return out
}
