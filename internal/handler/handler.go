// Package handler exposes the portal's JSON HTTP API.
package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/sebastiaan36/louman/internal/csvio"
	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/cart"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/document"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

// Handler wires the domain services to HTTP routes. Request decoding, error
// mapping and response shaping happen here; business rules live in the
// services.
type Handler struct {
	customers  *customer.Service
	carts      *cart.Service
	orders     *order.Service
	documents  *document.Service
	products   product.Repository
	categories product.CategoryRepository
	favorites  product.FavoriteRepository
	users      auth.UserRepository
	apikeys    auth.Repository

	productCSV  *csvio.ProductCSV
	customerCSV *csvio.CustomerCSV
	renderer    document.Renderer
	invoices    InvoiceMailer

	pepper []byte
}

// InvoiceMailer sends a rendered invoice to the order's customer.
type InvoiceMailer interface {
	InvoiceIssued(ctx context.Context, d order.Detail, inv document.Invoice, pdf []byte) error
}

// Deps collects the handler's dependencies.
type Deps struct {
	Customers  *customer.Service
	Carts      *cart.Service
	Orders     *order.Service
	Documents  *document.Service
	Products   product.Repository
	Categories product.CategoryRepository
	Favorites  product.FavoriteRepository
	Users      auth.UserRepository
	APIKeys    auth.Repository

	ProductCSV  *csvio.ProductCSV
	CustomerCSV *csvio.CustomerCSV
	Renderer    document.Renderer
	Invoices    InvoiceMailer

	KeyPepper []byte
}

// New constructs a Handler.
func New(d Deps) *Handler {
	return &Handler{
		customers:   d.Customers,
		carts:       d.Carts,
		orders:      d.Orders,
		documents:   d.Documents,
		products:    d.Products,
		categories:  d.Categories,
		favorites:   d.Favorites,
		users:       d.Users,
		apikeys:     d.APIKeys,
		productCSV:  d.ProductCSV,
		customerCSV: d.CustomerCSV,
		renderer:    d.Renderer,
		invoices:    d.Invoices,
		pepper:      d.KeyPepper,
	}
}

// Register mounts all API routes on the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/register", h.RegisterCustomer)

	cust := api.Group("/customer", h.Authenticate, h.RequireApprovedCustomer)
	cust.GET("/products", h.ListProducts)
	cust.GET("/products/:id", h.GetProduct)
	cust.GET("/favorites", h.ListFavorites)
	cust.POST("/favorites/:id", h.ToggleFavorite)
	cust.GET("/cart", h.GetCart)
	cust.POST("/cart/items", h.AddCartItem)
	cust.PATCH("/cart/items/:id", h.UpdateCartItem)
	cust.DELETE("/cart/items/:id", h.RemoveCartItem)
	cust.DELETE("/cart", h.ClearCart)
	cust.GET("/deadline", h.GetDeadline)
	cust.GET("/orders", h.ListMyOrders)
	cust.POST("/orders", h.PlaceOrder)
	cust.GET("/orders/:id", h.GetMyOrder)
	cust.POST("/orders/:id/reorder", h.Reorder)
	cust.GET("/orders/:id/packing-slip", h.MyPackingSlip)
	cust.GET("/addresses", h.ListMyAddresses)
	cust.POST("/addresses", h.CreateMyAddress)
	cust.PATCH("/addresses/:id", h.UpdateMyAddress)
	cust.DELETE("/addresses/:id", h.DeleteMyAddress)
	cust.GET("/profile", h.GetProfile)
	cust.PATCH("/profile", h.UpdateProfile)

	admin := api.Group("/admin", h.Authenticate, h.RequireAdmin)
	admin.GET("/customers/pending", h.ListPendingCustomers)
	admin.GET("/customers", h.ListCustomers)
	admin.GET("/customers/export", h.ExportCustomers)
	admin.POST("/customers/import", h.ImportCustomers)
	admin.GET("/customers/:id", h.GetCustomer)
	admin.PATCH("/customers/:id", h.UpdateCustomer)
	admin.PATCH("/customers/:id/category-discount", h.UpdateCategoryDiscount)
	admin.POST("/customers/:id/approve", h.ApproveCustomer)
	admin.GET("/customers/:id/addresses", h.ListCustomerAddresses)
	admin.POST("/customers/:id/addresses", h.CreateCustomerAddress)
	admin.PATCH("/customers/:id/addresses/:addressID", h.UpdateCustomerAddress)
	admin.DELETE("/customers/:id/addresses/:addressID", h.DeleteCustomerAddress)
	admin.GET("/route/:day", h.GetRoute)
	admin.PUT("/route/:day", h.SetRoute)
	admin.GET("/categories", h.ListCategories)
	admin.POST("/categories", h.CreateCategory)
	admin.PATCH("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)
	admin.GET("/products", h.AdminListProducts)
	admin.GET("/products/export", h.ExportProducts)
	admin.POST("/products/import", h.ImportProducts)
	admin.POST("/products", h.CreateProduct)
	admin.GET("/products/:id", h.AdminGetProduct)
	admin.PATCH("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
	admin.GET("/orders", h.SearchOrders)
	admin.POST("/orders", h.AdminCreateOrder)
	admin.POST("/orders/bulk-status", h.BulkOrderStatus)
	admin.POST("/orders/packing-slips", h.BulkPackingSlips)
	admin.GET("/orders/:id", h.GetOrder)
	admin.PUT("/orders/:id", h.UpdateOrder)
	admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	admin.GET("/orders/:id/packing-slip", h.PackingSlip)
	admin.GET("/orders/:id/invoice", h.Invoice)
	admin.POST("/orders/:id/invoice/send", h.SendInvoice)
	admin.GET("/production-list", h.ProductionList)
	admin.GET("/customer-overview", h.CustomerOverview)
}
