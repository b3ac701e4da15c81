package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sebastiaan36/louman/internal/domain/auth"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Notifier dispatches customer lifecycle notifications. Implementations are
// best-effort: they log failures and never return them.
type Notifier interface {
	CustomerRegistered(ctx context.Context, c Customer)
	CustomerApproved(ctx context.Context, c Customer)
}

// Service handles customer registration, staff approval, profile updates,
// delivery addresses and route planning.
type Service struct {
	customers Repository
	addresses AddressRepository
	users     auth.UserRepository
	notifier  Notifier
	keyPepper []byte
}

// NewService creates a customer Service.
func NewService(
	customers Repository,
	addresses AddressRepository,
	users auth.UserRepository,
	notifier Notifier,
	keyPepper []byte,
) *Service {
	return &Service{
		customers: customers,
		addresses: addresses,
		users:     users,
		notifier:  notifier,
		keyPepper: keyPepper,
	}
}

// RegisterRequest holds the self-service registration form input.
type RegisterRequest struct {
	CompanyName      string
	ContactPerson    string
	Email            string
	Password         string
	PhoneNumber      string
	StreetName       string
	HouseNumber      string
	PostalCode       string
	City             string
	KvKNumber        string
	BankAccount      string
	VATNumber        string
	PackingSlipEmail string
}

func (r RegisterRequest) validate() error {
	required := []struct {
		field, value string
	}{
		{"company_name", r.CompanyName},
		{"contact_person", r.ContactPerson},
		{"email", r.Email},
		{"phone_number", r.PhoneNumber},
		{"street_name", r.StreetName},
		{"house_number", r.HouseNumber},
		{"postal_code", r.PostalCode},
		{"city", r.City},
		{"kvk_number", r.KvKNumber},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "required"}
		}
	}
	if !strings.Contains(r.Email, "@") {
		return &ValidationError{Field: "email", Reason: "not an email address"}
	}
	if len(r.Password) < 8 {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	return nil
}

// Registration is the result of a successful self-service signup. APIKey is
// the plaintext credential, returned exactly once; only its HMAC is stored.
type Registration struct {
	Customer Customer
	APIKey   string
}

// Register creates an unapproved customer with its login account and API key
// in one transaction. Staff are notified so they can review the application.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, errors.Wrap(err, "check email")
	}
	if taken {
		return nil, ErrDuplicateEmail
	}
	exists, err := s.customers.KvKExists(ctx, req.KvKNumber)
	if err != nil {
		return nil, errors.Wrap(err, "check kvk number")
	}
	if exists {
		return nil, ErrDuplicateKvK
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &auth.User{
		Name:         req.ContactPerson,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         auth.RoleCustomer,
	}
	c := &Customer{
		CompanyName:      req.CompanyName,
		ContactPerson:    req.ContactPerson,
		PhoneNumber:      req.PhoneNumber,
		StreetName:       req.StreetName,
		HouseNumber:      req.HouseNumber,
		PostalCode:       req.PostalCode,
		City:             req.City,
		KvKNumber:        req.KvKNumber,
		BankAccount:      req.BankAccount,
		VATNumber:        req.VATNumber,
		PackingSlipEmail: req.PackingSlipEmail,
	}

	key := uuid.NewString()
	if err := s.customers.CreateWithUser(ctx, u, c, auth.HashKey(key, s.keyPepper)); err != nil {
		return nil, errors.Wrap(err, "create customer")
	}

	s.notifier.CustomerRegistered(ctx, *c)

	return &Registration{Customer: *c, APIKey: key}, nil
}

// ApproveRequest carries the commercial terms staff assign at approval time.
type ApproveRequest struct {
	Category    Category
	DeliveryDay DeliveryDay
	// Discount is a whole percentage in 1..5; zero leaves the customer
	// without a discount.
	Discount int
}

// Approve marks a pending customer as approved, assigning category, delivery
// day and optional discount, and stamps who approved it and when. Approving an
// already approved customer fails; the original approval is never overwritten.
func (s *Service) Approve(ctx context.Context, adminUserID, customerID int64, req ApproveRequest) (*Customer, error) {
	if !req.Category.Valid() {
		return nil, &ValidationError{Field: "category", Reason: "unknown category"}
	}
	if !req.DeliveryDay.Valid() {
		return nil, &ValidationError{Field: "delivery_day", Reason: "unknown delivery day"}
	}
	if req.Discount != 0 && !ValidDiscount(req.Discount) {
		return nil, &ValidationError{Field: "discount", Reason: "must be between 1 and 5"}
	}

	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c.Approved() {
		return nil, ErrAlreadyApproved
	}

	now := time.Now()
	c.ApprovedAt = &now
	c.ApprovedBy = &adminUserID
	c.Category = req.Category
	c.DeliveryDay = req.DeliveryDay
	c.Discount = req.Discount

	if err := s.customers.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update customer")
	}

	s.notifier.CustomerApproved(ctx, *c)

	return c, nil
}

// UpdateRequest holds the staff-editable customer fields.
type UpdateRequest struct {
	CompanyName      string
	ContactPerson    string
	PhoneNumber      string
	StreetName       string
	HouseNumber      string
	PostalCode       string
	City             string
	BankAccount      string
	VATNumber        string
	PackingSlipEmail string
	Category         Category
	DeliveryDay      DeliveryDay
	Discount         int
	ShowOnMap        bool
}

// Update applies staff edits to a customer. The KvK number and approval stamp
// are immutable through this path.
func (s *Service) Update(ctx context.Context, customerID int64, req UpdateRequest) (*Customer, error) {
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, &ValidationError{Field: "company_name", Reason: "required"}
	}
	if req.Category != "" && !req.Category.Valid() {
		return nil, &ValidationError{Field: "category", Reason: "unknown category"}
	}
	if req.DeliveryDay != "" && !req.DeliveryDay.Valid() {
		return nil, &ValidationError{Field: "delivery_day", Reason: "unknown delivery day"}
	}
	if req.Discount != 0 && !ValidDiscount(req.Discount) {
		return nil, &ValidationError{Field: "discount", Reason: "must be between 1 and 5"}
	}

	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	c.CompanyName = req.CompanyName
	c.ContactPerson = req.ContactPerson
	c.PhoneNumber = req.PhoneNumber
	c.StreetName = req.StreetName
	c.HouseNumber = req.HouseNumber
	c.PostalCode = req.PostalCode
	c.City = req.City
	c.BankAccount = req.BankAccount
	c.VATNumber = req.VATNumber
	c.PackingSlipEmail = req.PackingSlipEmail
	c.Category = req.Category
	c.DeliveryDay = req.DeliveryDay
	c.Discount = req.Discount
	c.ShowOnMap = req.ShowOnMap

	if err := s.customers.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update customer")
	}
	return c, nil
}

// SetCategoryDiscount changes a customer's pricing terms, leaving the rest of
// the record alone.
func (s *Service) SetCategoryDiscount(ctx context.Context, customerID int64, cat Category, discount int) (*Customer, error) {
	if !cat.Valid() {
		return nil, &ValidationError{Field: "category", Reason: "unknown category"}
	}
	if discount != 0 && !ValidDiscount(discount) {
		return nil, &ValidationError{Field: "discount", Reason: "must be between 1 and 5"}
	}

	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c.Category = cat
	c.Discount = discount

	if err := s.customers.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update customer")
	}
	return c, nil
}

// Get loads a single customer.
func (s *Service) Get(ctx context.Context, customerID int64) (*Customer, error) {
	return s.customers.GetByID(ctx, customerID)
}

// GetByUser loads the customer record behind a login account.
func (s *Service) GetByUser(ctx context.Context, userID int64) (*Customer, error) {
	return s.customers.GetByUserID(ctx, userID)
}

// ListPending lists customers awaiting approval.
func (s *Service) ListPending(ctx context.Context) ([]Customer, error) {
	return s.customers.ListPending(ctx)
}

// ListApproved lists all approved customers.
func (s *Service) ListApproved(ctx context.Context) ([]Customer, error) {
	return s.customers.ListApproved(ctx)
}

// Route returns the approved customers of a delivery day in route order, with
// unpositioned customers last.
func (s *Service) Route(ctx context.Context, day DeliveryDay) ([]Customer, error) {
	if !day.Valid() {
		return nil, &ValidationError{Field: "delivery_day", Reason: "unknown delivery day"}
	}
	return s.customers.ListByDeliveryDay(ctx, day)
}

// SetRouteOrder stores the drag-and-drop route for a delivery day. Positions
// are assigned 1-based in list order.
func (s *Service) SetRouteOrder(ctx context.Context, day DeliveryDay, customerIDs []int64) error {
	if !day.Valid() {
		return &ValidationError{Field: "delivery_day", Reason: "unknown delivery day"}
	}
	if len(customerIDs) == 0 {
		return &ValidationError{Field: "customer_ids", Reason: "required"}
	}
	seen := make(map[int64]bool, len(customerIDs))
	for _, id := range customerIDs {
		if seen[id] {
			return &ValidationError{Field: "customer_ids", Reason: "duplicate customer"}
		}
		seen[id] = true
	}
	return s.customers.SetRouteOrder(ctx, day, customerIDs)
}

// AddressRequest holds the input for creating or updating a delivery address.
type AddressRequest struct {
	Name        string
	StreetName  string
	HouseNumber string
	PostalCode  string
	City        string
	Notes       string
	IsDefault   bool
}

func (r AddressRequest) validate() error {
	required := []struct {
		field, value string
	}{
		{"name", r.Name},
		{"street_name", r.StreetName},
		{"house_number", r.HouseNumber},
		{"postal_code", r.PostalCode},
		{"city", r.City},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "required"}
		}
	}
	return nil
}

// ListAddresses returns the customer's delivery addresses.
func (s *Service) ListAddresses(ctx context.Context, customerID int64) ([]DeliveryAddress, error) {
	return s.addresses.ListByCustomer(ctx, customerID)
}

// AddAddress creates a delivery address for the customer. When the new address
// is marked default, any existing default is unset first.
func (s *Service) AddAddress(ctx context.Context, customerID int64, req AddressRequest) (*DeliveryAddress, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if req.IsDefault {
		if err := s.addresses.ClearDefault(ctx, customerID); err != nil {
			return nil, errors.Wrap(err, "clear default address")
		}
	}

	a := &DeliveryAddress{
		CustomerID:  customerID,
		Name:        req.Name,
		StreetName:  req.StreetName,
		HouseNumber: req.HouseNumber,
		PostalCode:  req.PostalCode,
		City:        req.City,
		Notes:       req.Notes,
		IsDefault:   req.IsDefault,
	}
	if err := s.addresses.Create(ctx, a); err != nil {
		return nil, errors.Wrap(err, "create address")
	}
	return a, nil
}

// UpdateAddress edits one of the customer's delivery addresses. Addresses of
// other customers are reported as not found rather than forbidden.
func (s *Service) UpdateAddress(ctx context.Context, customerID, addressID int64, req AddressRequest) (*DeliveryAddress, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	a, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if a.CustomerID != customerID {
		return nil, ErrAddressNotFound
	}

	if req.IsDefault && !a.IsDefault {
		if err := s.addresses.ClearDefault(ctx, customerID); err != nil {
			return nil, errors.Wrap(err, "clear default address")
		}
	}

	a.Name = req.Name
	a.StreetName = req.StreetName
	a.HouseNumber = req.HouseNumber
	a.PostalCode = req.PostalCode
	a.City = req.City
	a.Notes = req.Notes
	a.IsDefault = req.IsDefault

	if err := s.addresses.Update(ctx, a); err != nil {
		return nil, errors.Wrap(err, "update address")
	}
	return a, nil
}

// DeleteAddress removes one of the customer's delivery addresses.
func (s *Service) DeleteAddress(ctx context.Context, customerID, addressID int64) error {
	a, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			return nil
		}
		return err
	}
	if a.CustomerID != customerID {
		return ErrAddressNotFound
	}
	return s.addresses.Delete(ctx, addressID)
}
