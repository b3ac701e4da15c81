package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sebastiaan36/louman/internal/domain/customer"
)

type registerRequest struct {
	CompanyName      string `json:"company_name"`
	ContactPerson    string `json:"contact_person"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	PhoneNumber      string `json:"phone_number"`
	StreetName       string `json:"street_name"`
	HouseNumber      string `json:"house_number"`
	PostalCode       string `json:"postal_code"`
	City             string `json:"city"`
	KvKNumber        string `json:"kvk_number"`
	BankAccount      string `json:"bank_account"`
	VATNumber        string `json:"vat_number"`
	PackingSlipEmail string `json:"packing_slip_email"`
}

// RegisterCustomer handles self-service signup. The response carries the
// plaintext API key exactly once; it is never retrievable again.
func (h *Handler) RegisterCustomer(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reg, err := h.customers.Register(c.Request().Context(), customer.RegisterRequest{
		CompanyName:      req.CompanyName,
		ContactPerson:    req.ContactPerson,
		Email:            req.Email,
		Password:         req.Password,
		PhoneNumber:      req.PhoneNumber,
		StreetName:       req.StreetName,
		HouseNumber:      req.HouseNumber,
		PostalCode:       req.PostalCode,
		City:             req.City,
		KvKNumber:        req.KvKNumber,
		BankAccount:      req.BankAccount,
		VATNumber:        req.VATNumber,
		PackingSlipEmail: req.PackingSlipEmail,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"customer": toCustomerJSON(reg.Customer),
		"api_key":  reg.APIKey,
	})
}

// GetProfile returns the calling customer's own record.
func (h *Handler) GetProfile(c echo.Context) error {
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerJSON(*cust))
}

type profileRequest struct {
	ContactPerson    string `json:"contact_person"`
	PhoneNumber      string `json:"phone_number"`
	StreetName       string `json:"street_name"`
	HouseNumber      string `json:"house_number"`
	PostalCode       string `json:"postal_code"`
	City             string `json:"city"`
	BankAccount      string `json:"bank_account"`
	VATNumber        string `json:"vat_number"`
	PackingSlipEmail string `json:"packing_slip_email"`
}

// UpdateProfile lets a customer change their own contact details. Company
// identity, pricing and delivery settings stay staff-only.
func (h *Handler) UpdateProfile(c echo.Context) error {
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	update := customer.UpdateRequest{
		CompanyName:      cust.CompanyName,
		ContactPerson:    orDefault(req.ContactPerson, cust.ContactPerson),
		PhoneNumber:      orDefault(req.PhoneNumber, cust.PhoneNumber),
		StreetName:       orDefault(req.StreetName, cust.StreetName),
		HouseNumber:      orDefault(req.HouseNumber, cust.HouseNumber),
		PostalCode:       orDefault(req.PostalCode, cust.PostalCode),
		City:             orDefault(req.City, cust.City),
		BankAccount:      orDefault(req.BankAccount, cust.BankAccount),
		VATNumber:        orDefault(req.VATNumber, cust.VATNumber),
		PackingSlipEmail: orDefault(req.PackingSlipEmail, cust.PackingSlipEmail),
		Category:         cust.Category,
		DeliveryDay:      cust.DeliveryDay,
		Discount:         cust.Discount,
		ShowOnMap:        cust.ShowOnMap,
	}
	updated, err := h.customers.Update(c.Request().Context(), cust.ID, update)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerJSON(*updated))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type addressRequest struct {
	Name        string `json:"name"`
	StreetName  string `json:"street_name"`
	HouseNumber string `json:"house_number"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	Notes       string `json:"notes"`
	IsDefault   bool   `json:"is_default"`
}

func (r addressRequest) domain() customer.AddressRequest {
	return customer.AddressRequest{
		Name:        r.Name,
		StreetName:  r.StreetName,
		HouseNumber: r.HouseNumber,
		PostalCode:  r.PostalCode,
		City:        r.City,
		Notes:       r.Notes,
		IsDefault:   r.IsDefault,
	}
}

// ListMyAddresses returns the customer's delivery addresses, default first.
func (h *Handler) ListMyAddresses(c echo.Context) error {
	addrs, err := h.customers.ListAddresses(c.Request().Context(), principal(c).CustomerID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toAddressListJSON(addrs))
}

// CreateMyAddress adds a delivery address for the calling customer.
func (h *Handler) CreateMyAddress(c echo.Context) error {
	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	addr, err := h.customers.AddAddress(c.Request().Context(), principal(c).CustomerID, req.domain())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toAddressJSON(*addr))
}

// UpdateMyAddress edits one of the calling customer's delivery addresses.
func (h *Handler) UpdateMyAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	addr, err := h.customers.UpdateAddress(c.Request().Context(), principal(c).CustomerID, id, req.domain())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toAddressJSON(*addr))
}

// DeleteMyAddress removes one of the calling customer's delivery addresses.
func (h *Handler) DeleteMyAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.customers.DeleteAddress(c.Request().Context(), principal(c).CustomerID, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPendingCustomers lists signups awaiting approval, oldest first.
func (h *Handler) ListPendingCustomers(c echo.Context) error {
	customers, err := h.customers.ListPending(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerListJSON(customers))
}

// ListCustomers lists all approved customers.
func (h *Handler) ListCustomers(c echo.Context) error {
	customers, err := h.customers.ListApproved(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerListJSON(customers))
}

// GetCustomer returns any customer by id.
func (h *Handler) GetCustomer(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cust, err := h.customers.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerJSON(*cust))
}

type customerUpdateRequest struct {
	CompanyName      string `json:"company_name"`
	ContactPerson    string `json:"contact_person"`
	PhoneNumber      string `json:"phone_number"`
	StreetName       string `json:"street_name"`
	HouseNumber      string `json:"house_number"`
	PostalCode       string `json:"postal_code"`
	City             string `json:"city"`
	BankAccount      string `json:"bank_account"`
	VATNumber        string `json:"vat_number"`
	PackingSlipEmail string `json:"packing_slip_email"`
	Category         string `json:"category"`
	DeliveryDay      string `json:"delivery_day"`
	Discount         int    `json:"discount_percentage"`
	ShowOnMap        bool   `json:"show_on_map"`
}

// UpdateCustomer applies a staff edit to a customer record. The KvK number
// and approval stamp cannot be changed.
func (h *Handler) UpdateCustomer(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req customerUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.customers.Update(c.Request().Context(), id, customer.UpdateRequest{
		CompanyName:      req.CompanyName,
		ContactPerson:    req.ContactPerson,
		PhoneNumber:      req.PhoneNumber,
		StreetName:       req.StreetName,
		HouseNumber:      req.HouseNumber,
		PostalCode:       req.PostalCode,
		City:             req.City,
		BankAccount:      req.BankAccount,
		VATNumber:        req.VATNumber,
		PackingSlipEmail: req.PackingSlipEmail,
		Category:         customer.Category(req.Category),
		DeliveryDay:      customer.DeliveryDay(req.DeliveryDay),
		Discount:         req.Discount,
		ShowOnMap:        req.ShowOnMap,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerJSON(*updated))
}

type categoryDiscountRequest struct {
	Category string `json:"category"`
	Discount int    `json:"discount_percentage"`
}

// UpdateCategoryDiscount changes only a customer's category and discount.
func (h *Handler) UpdateCategoryDiscount(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req categoryDiscountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.customers.SetCategoryDiscount(c.Request().Context(), id, customer.Category(req.Category), req.Discount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerJSON(*updated))
}

type approveRequest struct {
	Category    string `json:"category"`
	DeliveryDay string `json:"delivery_day"`
	Discount    int    `json:"discount_percentage"`
}

// ApproveCustomer accepts a pending signup, assigning category, delivery day
// and optional discount. The customer is mailed that ordering is open.
func (h *Handler) ApproveCustomer(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req approveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cust, err := h.customers.Approve(c.Request().Context(), principal(c).UserID, id, customer.ApproveRequest{
		Category:    customer.Category(req.Category),
		DeliveryDay: customer.DeliveryDay(req.DeliveryDay),
		Discount:    req.Discount,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerJSON(*cust))
}

// ListCustomerAddresses returns a customer's delivery addresses.
func (h *Handler) ListCustomerAddresses(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.customers.Get(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	addrs, err := h.customers.ListAddresses(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toAddressListJSON(addrs))
}

// CreateCustomerAddress adds a delivery address on a customer's behalf.
func (h *Handler) CreateCustomerAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, err := h.customers.Get(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	addr, err := h.customers.AddAddress(c.Request().Context(), id, req.domain())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toAddressJSON(*addr))
}

// UpdateCustomerAddress edits a customer's delivery address.
func (h *Handler) UpdateCustomerAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	addressID, err := paramID(c, "addressID")
	if err != nil {
		return err
	}
	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	addr, err := h.customers.UpdateAddress(c.Request().Context(), id, addressID, req.domain())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toAddressJSON(*addr))
}

// DeleteCustomerAddress removes a customer's delivery address.
func (h *Handler) DeleteCustomerAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	addressID, err := paramID(c, "addressID")
	if err != nil {
		return err
	}
	if err := h.customers.DeleteAddress(c.Request().Context(), id, addressID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetRoute returns a delivery day's customers in route order.
func (h *Handler) GetRoute(c echo.Context) error {
	customers, err := h.customers.Route(c.Request().Context(), customer.DeliveryDay(c.Param("day")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerListJSON(customers))
}

// SetRoute stores the drive order for a delivery day: positions are assigned
// 1-based in the order the ids are sent.
func (h *Handler) SetRoute(c echo.Context) error {
	var req struct {
		CustomerIDs []int64 `json:"customer_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	day := customer.DeliveryDay(c.Param("day"))
	if err := h.customers.SetRouteOrder(c.Request().Context(), day, req.CustomerIDs); err != nil {
		return httpError(err)
	}
	routed, err := h.customers.Route(c.Request().Context(), day)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCustomerListJSON(routed))
}
