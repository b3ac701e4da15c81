package customer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sebastiaan36/louman/internal/domain/auth"
)

type mockCustomerRepo struct {
	byID     map[int64]*Customer
	kvks     map[string]bool
	updated  *Customer
	createdU *auth.User
	createdC *Customer
	keyHash  string
	routeDay DeliveryDay
	routeIDs []int64
}

func newMockCustomerRepo() *mockCustomerRepo {
	return &mockCustomerRepo{byID: map[int64]*Customer{}, kvks: map[string]bool{}}
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id int64) (*Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCustomerRepo) GetByUserID(_ context.Context, _ int64) (*Customer, error) {
	return nil, ErrNotFound
}
func (m *mockCustomerRepo) ListPending(_ context.Context) ([]Customer, error)  { return nil, nil }
func (m *mockCustomerRepo) ListApproved(_ context.Context) ([]Customer, error) { return nil, nil }
func (m *mockCustomerRepo) ListByDeliveryDay(_ context.Context, _ DeliveryDay) ([]Customer, error) {
	return nil, nil
}

func (m *mockCustomerRepo) KvKExists(_ context.Context, kvk string) (bool, error) {
	return m.kvks[kvk], nil
}

func (m *mockCustomerRepo) Update(_ context.Context, c *Customer) error {
	cp := *c
	m.updated = &cp
	return nil
}

func (m *mockCustomerRepo) CreateWithUser(_ context.Context, u *auth.User, c *Customer, keyHash string) error {
	u.ID = 20
	c.ID = 30
	c.UserID = u.ID
	m.createdU = u
	m.createdC = c
	m.keyHash = keyHash
	return nil
}

func (m *mockCustomerRepo) SetRouteOrder(_ context.Context, day DeliveryDay, ids []int64) error {
	m.routeDay = day
	m.routeIDs = ids
	return nil
}

type mockAddressRepo struct {
	byID           map[int64]*DeliveryAddress
	created        *DeliveryAddress
	updated        *DeliveryAddress
	deletedID      int64
	defaultCleared int64
}

func newMockAddressRepo() *mockAddressRepo {
	return &mockAddressRepo{byID: map[int64]*DeliveryAddress{}}
}

func (m *mockAddressRepo) ListByCustomer(_ context.Context, _ int64) ([]DeliveryAddress, error) {
	return nil, nil
}

func (m *mockAddressRepo) GetByID(_ context.Context, id int64) (*DeliveryAddress, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAddressRepo) Create(_ context.Context, a *DeliveryAddress) error {
	a.ID = 40
	m.created = a
	return nil
}

func (m *mockAddressRepo) Update(_ context.Context, a *DeliveryAddress) error {
	cp := *a
	m.updated = &cp
	return nil
}

func (m *mockAddressRepo) Delete(_ context.Context, id int64) error {
	m.deletedID = id
	return nil
}

func (m *mockAddressRepo) ClearDefault(_ context.Context, customerID int64) error {
	m.defaultCleared = customerID
	return nil
}

type mockUserRepo struct {
	emails map[string]bool
}

func (m *mockUserRepo) GetByID(_ context.Context, _ int64) (*auth.User, error) {
	return nil, auth.ErrUserNotFound
}
func (m *mockUserRepo) GetByEmail(_ context.Context, _ string) (*auth.User, error) {
	return nil, auth.ErrUserNotFound
}
func (m *mockUserRepo) ListAdmins(_ context.Context) ([]auth.User, error) { return nil, nil }
func (m *mockUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	return m.emails[email], nil
}
func (m *mockUserRepo) UpdateEmail(_ context.Context, _ int64, _ string) error { return nil }

type mockNotifier struct {
	registered []Customer
	approved   []Customer
}

func (m *mockNotifier) CustomerRegistered(_ context.Context, c Customer) {
	m.registered = append(m.registered, c)
}

func (m *mockNotifier) CustomerApproved(_ context.Context, c Customer) {
	m.approved = append(m.approved, c)
}

type fixture struct {
	customers *mockCustomerRepo
	addresses *mockAddressRepo
	users     *mockUserRepo
	notifier  *mockNotifier
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		customers: newMockCustomerRepo(),
		addresses: newMockAddressRepo(),
		users:     &mockUserRepo{emails: map[string]bool{}},
		notifier:  &mockNotifier{},
	}
	f.svc = NewService(f.customers, f.addresses, f.users, f.notifier, []byte("pepper"))
	return f
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		CompanyName:   "Broodjes De Pijp",
		ContactPerson: "J. de Vries",
		Email:         "jan@depijp.nl",
		Password:      "wachtwoord123",
		PhoneNumber:   "020-1234567",
		StreetName:    "Ferdinand Bolstraat",
		HouseNumber:   "12",
		PostalCode:    "1072 LJ",
		City:          "Amsterdam",
		KvKNumber:     "12345678",
	}
}

func TestRegister(t *testing.T) {
	f := newFixture()

	reg, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	require.NotNil(t, f.customers.createdC)
	assert.Nil(t, f.customers.createdC.ApprovedAt)
	assert.Equal(t, auth.RoleCustomer, f.customers.createdU.Role)

	// Password is stored as a bcrypt hash, never plaintext.
	err = bcrypt.CompareHashAndPassword([]byte(f.customers.createdU.PasswordHash), []byte("wachtwoord123"))
	assert.NoError(t, err)

	// Only the HMAC of the key is persisted; the plaintext goes to the caller.
	assert.NotEmpty(t, reg.APIKey)
	assert.Equal(t, auth.HashKey(reg.APIKey, []byte("pepper")), f.customers.keyHash)
	assert.NotContains(t, f.customers.keyHash, reg.APIKey)

	require.Len(t, f.notifier.registered, 1)
	assert.Equal(t, "Broodjes De Pijp", f.notifier.registered[0].CompanyName)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture()
	f.users.emails["jan@depijp.nl"] = true

	_, err := f.svc.Register(context.Background(), validRegistration())
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Nil(t, f.customers.createdC)
}

func TestRegister_DuplicateKvK(t *testing.T) {
	f := newFixture()
	f.customers.kvks["12345678"] = true

	_, err := f.svc.Register(context.Background(), validRegistration())
	require.ErrorIs(t, err, ErrDuplicateKvK)
	assert.Nil(t, f.customers.createdC)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture()

	short := validRegistration()
	short.Password = "kort"
	_, err := f.svc.Register(context.Background(), short)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	missing := validRegistration()
	missing.KvKNumber = "  "
	_, err = f.svc.Register(context.Background(), missing)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "kvk_number", verr.Field)
}

func TestApprove(t *testing.T) {
	f := newFixture()
	f.customers.byID[30] = &Customer{ID: 30, CompanyName: "Broodjes De Pijp"}

	c, err := f.svc.Approve(context.Background(), 7, 30, ApproveRequest{
		Category:    CategorySandwichShop,
		DeliveryDay: DayWednesday,
		Discount:    3,
	})
	require.NoError(t, err)

	require.NotNil(t, c.ApprovedAt)
	require.NotNil(t, c.ApprovedBy)
	assert.Equal(t, int64(7), *c.ApprovedBy)
	assert.Equal(t, CategorySandwichShop, c.Category)
	assert.Equal(t, DayWednesday, c.DeliveryDay)
	assert.Equal(t, 3, c.Discount)

	require.Len(t, f.notifier.approved, 1)
}

func TestApprove_AlreadyApproved(t *testing.T) {
	f := newFixture()
	when := time.Now().Add(-24 * time.Hour)
	f.customers.byID[30] = &Customer{ID: 30, ApprovedAt: &when}

	_, err := f.svc.Approve(context.Background(), 7, 30, ApproveRequest{
		Category:    CategoryWholesale,
		DeliveryDay: DayMonday,
	})
	require.ErrorIs(t, err, ErrAlreadyApproved)
	assert.Nil(t, f.customers.updated)
	assert.Empty(t, f.notifier.approved)
}

func TestApprove_InvalidInput(t *testing.T) {
	f := newFixture()
	f.customers.byID[30] = &Customer{ID: 30}

	var verr *ValidationError

	_, err := f.svc.Approve(context.Background(), 7, 30, ApproveRequest{
		Category: Category("retail"), DeliveryDay: DayMonday,
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)

	_, err = f.svc.Approve(context.Background(), 7, 30, ApproveRequest{
		Category: CategoryWholesale, DeliveryDay: DayMonday, Discount: 10,
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "discount", verr.Field)
}

func TestSetCategoryDiscount(t *testing.T) {
	f := newFixture()
	when := time.Now().Add(-24 * time.Hour)
	f.customers.byID[30] = &Customer{
		ID: 30, CompanyName: "Broodjes De Pijp", ApprovedAt: &when,
		Category: CategorySandwichShop, DeliveryDay: DayWednesday, Discount: 3,
	}

	c, err := f.svc.SetCategoryDiscount(context.Background(), 30, CategoryCatering, 5)
	require.NoError(t, err)
	assert.Equal(t, CategoryCatering, c.Category)
	assert.Equal(t, 5, c.Discount)

	// Everything outside the pricing terms stays put.
	assert.Equal(t, "Broodjes De Pijp", c.CompanyName)
	assert.Equal(t, DayWednesday, c.DeliveryDay)
	assert.Equal(t, &when, c.ApprovedAt)
}

func TestSetCategoryDiscount_InvalidInput(t *testing.T) {
	f := newFixture()
	f.customers.byID[30] = &Customer{ID: 30, CompanyName: "Broodjes De Pijp"}

	var verr *ValidationError

	_, err := f.svc.SetCategoryDiscount(context.Background(), 30, Category("retail"), 3)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)

	_, err = f.svc.SetCategoryDiscount(context.Background(), 30, CategoryWholesale, 10)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "discount", verr.Field)
	assert.Nil(t, f.customers.updated)
}

func TestSetRouteOrder(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.SetRouteOrder(context.Background(), DayFriday, []int64{3, 1, 2}))
	assert.Equal(t, DayFriday, f.customers.routeDay)
	assert.Equal(t, []int64{3, 1, 2}, f.customers.routeIDs)

	err := f.svc.SetRouteOrder(context.Background(), DeliveryDay("someday"), []int64{1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	err = f.svc.SetRouteOrder(context.Background(), DayFriday, []int64{1, 2, 1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "customer_ids", verr.Field)
}

func validAddress() AddressRequest {
	return AddressRequest{
		Name:        "Filiaal Oost",
		StreetName:  "Linnaeusstraat",
		HouseNumber: "3",
		PostalCode:  "1093 EE",
		City:        "Amsterdam",
	}
}

func TestAddAddress_DefaultClearsPrevious(t *testing.T) {
	f := newFixture()

	req := validAddress()
	req.IsDefault = true
	a, err := f.svc.AddAddress(context.Background(), 30, req)
	require.NoError(t, err)

	assert.Equal(t, int64(30), f.addresses.defaultCleared)
	assert.True(t, a.IsDefault)
	assert.Equal(t, int64(30), a.CustomerID)
}

func TestAddAddress_NonDefaultKeepsPrevious(t *testing.T) {
	f := newFixture()

	_, err := f.svc.AddAddress(context.Background(), 30, validAddress())
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.addresses.defaultCleared)
}

func TestUpdateAddress_ForeignAddress(t *testing.T) {
	f := newFixture()
	f.addresses.byID[40] = &DeliveryAddress{ID: 40, CustomerID: 99}

	_, err := f.svc.UpdateAddress(context.Background(), 30, 40, validAddress())
	require.ErrorIs(t, err, ErrAddressNotFound)
	assert.Nil(t, f.addresses.updated)
}

func TestDeleteAddress(t *testing.T) {
	f := newFixture()
	f.addresses.byID[40] = &DeliveryAddress{ID: 40, CustomerID: 30}

	require.NoError(t, f.svc.DeleteAddress(context.Background(), 30, 40))
	assert.Equal(t, int64(40), f.addresses.deletedID)

	// Deleting a vanished address is a no-op.
	require.NoError(t, f.svc.DeleteAddress(context.Background(), 30, 41))

	// Another customer's address is invisible.
	f.addresses.byID[42] = &DeliveryAddress{ID: 42, CustomerID: 99}
	require.ErrorIs(t, f.svc.DeleteAddress(context.Background(), 30, 42), ErrAddressNotFound)
}
