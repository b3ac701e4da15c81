package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/cart"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[int64]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error)       { return nil, nil }
func (m *mockProductRepo) ListActive(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) GetByArticleNumber(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}
func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Delete(_ context.Context, _ int64) error            { return nil }

type mockCartRepo struct {
	items []cart.Item
}

func (m *mockCartRepo) ListByCustomer(_ context.Context, _ int64) ([]cart.Item, error) {
	return m.items, nil
}
func (m *mockCartRepo) GetByID(_ context.Context, _ int64) (*cart.Item, error) {
	return nil, cart.ErrItemNotFound
}
func (m *mockCartRepo) GetByProduct(_ context.Context, _, _ int64) (*cart.Item, error) {
	return nil, cart.ErrItemNotFound
}
func (m *mockCartRepo) Create(_ context.Context, _ *cart.Item) error           { return nil }
func (m *mockCartRepo) UpdateQuantity(_ context.Context, _ int64, _ int) error { return nil }
func (m *mockCartRepo) Delete(_ context.Context, _ int64) error                { return nil }
func (m *mockCartRepo) DeleteByCustomer(_ context.Context, _ int64) error      { return nil }

type mockCustomerRepo struct {
	byID map[int64]*customer.Customer
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id int64) (*customer.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) GetByUserID(_ context.Context, _ int64) (*customer.Customer, error) {
	return nil, customer.ErrNotFound
}
func (m *mockCustomerRepo) ListPending(_ context.Context) ([]customer.Customer, error) {
	return nil, nil
}
func (m *mockCustomerRepo) ListApproved(_ context.Context) ([]customer.Customer, error) {
	return nil, nil
}
func (m *mockCustomerRepo) ListByDeliveryDay(_ context.Context, _ customer.DeliveryDay) ([]customer.Customer, error) {
	return nil, nil
}
func (m *mockCustomerRepo) KvKExists(_ context.Context, _ string) (bool, error)  { return false, nil }
func (m *mockCustomerRepo) Update(_ context.Context, _ *customer.Customer) error { return nil }
func (m *mockCustomerRepo) CreateWithUser(_ context.Context, _ *auth.User, _ *customer.Customer, _ string) error {
	return nil
}
func (m *mockCustomerRepo) SetRouteOrder(_ context.Context, _ customer.DeliveryDay, _ []int64) error {
	return nil
}

type mockAddressRepo struct {
	byID map[int64]*customer.DeliveryAddress
}

func (m *mockAddressRepo) GetByID(_ context.Context, id int64) (*customer.DeliveryAddress, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrAddressNotFound
	}
	return a, nil
}

func (m *mockAddressRepo) ListByCustomer(_ context.Context, _ int64) ([]customer.DeliveryAddress, error) {
	return nil, nil
}
func (m *mockAddressRepo) Create(_ context.Context, _ *customer.DeliveryAddress) error { return nil }
func (m *mockAddressRepo) Update(_ context.Context, _ *customer.DeliveryAddress) error { return nil }
func (m *mockAddressRepo) Delete(_ context.Context, _ int64) error                     { return nil }
func (m *mockAddressRepo) ClearDefault(_ context.Context, _ int64) error               { return nil }

type mockOrderRepo struct {
	detail    *Detail
	detailErr error

	created       *Order
	createdItems  []Item
	clearedCartOf int64
	createErr     error

	upserts    []Item
	deleteIDs  []int64
	savedTotal decimal.Decimal
	savedNotes string
	itemsSaved bool
	lastStatus Status
	statusIDs  []int64
	lastFilter Filter
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ int64) (*Order, error) {
	if m.detail == nil {
		return nil, ErrNotFound
	}
	o := m.detail.Order
	return &o, nil
}

func (m *mockOrderRepo) GetDetail(_ context.Context, _ int64) (*Detail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	if m.detail == nil {
		return nil, ErrNotFound
	}
	d := *m.detail
	return &d, nil
}

func (m *mockOrderRepo) Search(_ context.Context, f Filter) ([]Summary, error) {
	m.lastFilter = f
	return nil, nil
}

func (m *mockOrderRepo) ListPendingDetails(_ context.Context) ([]Detail, error) { return nil, nil }

func (m *mockOrderRepo) CreateWithItems(_ context.Context, o *Order, items []Item, clearCartOf int64) error {
	if m.createErr != nil {
		return m.createErr
	}
	o.ID = 101
	m.created = o
	m.createdItems = items
	m.clearedCartOf = clearCartOf
	return nil
}

func (m *mockOrderRepo) UpdateItems(_ context.Context, _ int64, upserts []Item, deleteIDs []int64, total decimal.Decimal, notes string) error {
	m.itemsSaved = true
	m.upserts = upserts
	m.deleteIDs = deleteIDs
	m.savedTotal = total
	m.savedNotes = notes
	return nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	m.lastStatus = status
	m.statusIDs = []int64{id}
	return nil
}

func (m *mockOrderRepo) BulkUpdateStatus(_ context.Context, ids []int64, status Status) error {
	m.lastStatus = status
	m.statusIDs = ids
	return nil
}

type mockNotifier struct {
	placed  []Detail
	shipped []Detail
}

func (m *mockNotifier) OrderPlaced(_ context.Context, d Detail)  { m.placed = append(m.placed, d) }
func (m *mockNotifier) OrderShipped(_ context.Context, d Detail) { m.shipped = append(m.shipped, d) }

// --- Helpers ---

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testProduct(id int64, title, price string) *product.Product {
	return &product.Product{
		ID:       id,
		Title:    title,
		Price:    money(price),
		InStock:  true,
		IsActive: true,
	}
}

func testCustomer(id int64) customer.Customer {
	return customer.Customer{ID: id, CompanyName: "Broodjes De Pijp"}
}

type fixture struct {
	orders    *mockOrderRepo
	products  *mockProductRepo
	carts     *mockCartRepo
	customers *mockCustomerRepo
	addresses *mockAddressRepo
	notifier  *mockNotifier
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		orders:    &mockOrderRepo{},
		products:  &mockProductRepo{byID: map[int64]*product.Product{}},
		carts:     &mockCartRepo{},
		customers: &mockCustomerRepo{byID: map[int64]*customer.Customer{}},
		addresses: &mockAddressRepo{byID: map[int64]*customer.DeliveryAddress{}},
		notifier:  &mockNotifier{},
	}
	f.svc = NewService(f.orders, f.products, f.carts, f.customers, f.addresses, f.notifier)
	return f
}

// --- Tests ---

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.PlaceOrder(context.Background(), testCustomer(1), PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, f.orders.created)
}

func TestPlaceOrder_FreezesPricesAndClearsCart(t *testing.T) {
	f := newFixture()
	f.products.byID[10] = testProduct(10, "Grillworst", "10.00")
	f.products.byID[11] = testProduct(11, "Leverworst", "5.00")
	f.carts.items = []cart.Item{
		{ID: 1, CustomerID: 1, ProductID: 10, Quantity: 2},
		{ID: 2, CustomerID: 1, ProductID: 11, Quantity: 1},
	}

	detail, err := f.svc.PlaceOrder(context.Background(), testCustomer(1), PlaceOrderRequest{Notes: "voor vrijdag"})
	require.NoError(t, err)

	assert.Equal(t, "25.00", detail.Total.StringFixed(2))
	assert.Equal(t, StatusPending, detail.Status)
	assert.Equal(t, int64(1), f.orders.clearedCartOf)
	require.Len(t, f.orders.createdItems, 2)
	assert.Equal(t, "10.00", f.orders.createdItems[0].Price.StringFixed(2))
	assert.Equal(t, "5.00", f.orders.createdItems[1].Price.StringFixed(2))

	// A later catalog price change must not touch the snapshot.
	f.products.byID[10].Price = money("99.99")
	assert.Equal(t, "10.00", f.orders.createdItems[0].Price.StringFixed(2))

	require.Len(t, f.notifier.placed, 1)
	assert.Equal(t, int64(101), f.notifier.placed[0].ID)
}

func TestPlaceOrder_AppliesCustomerDiscount(t *testing.T) {
	f := newFixture()
	f.products.byID[10] = testProduct(10, "Grillworst", "10.00")
	f.carts.items = []cart.Item{{ID: 1, CustomerID: 1, ProductID: 10, Quantity: 3}}

	c := testCustomer(1)
	c.Discount = 5

	detail, err := f.svc.PlaceOrder(context.Background(), c, PlaceOrderRequest{})
	require.NoError(t, err)

	assert.Equal(t, "9.50", f.orders.createdItems[0].Price.StringFixed(2))
	assert.Equal(t, "28.50", detail.Total.StringFixed(2))
}

func TestPlaceOrder_UnavailableProductAborts(t *testing.T) {
	f := newFixture()
	f.products.byID[10] = testProduct(10, "Grillworst", "10.00")
	out := testProduct(11, "Ossenworst", "4.50")
	out.InStock = false
	f.products.byID[11] = out
	f.carts.items = []cart.Item{
		{ID: 1, CustomerID: 1, ProductID: 10, Quantity: 1},
		{ID: 2, CustomerID: 1, ProductID: 11, Quantity: 1},
	}

	_, err := f.svc.PlaceOrder(context.Background(), testCustomer(1), PlaceOrderRequest{})

	var unavailable *cart.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Ossenworst", unavailable.Title)
	assert.Nil(t, f.orders.created)
	assert.Empty(t, f.notifier.placed)
}

func TestPlaceOrder_ForeignAddressRejected(t *testing.T) {
	f := newFixture()
	f.products.byID[10] = testProduct(10, "Grillworst", "10.00")
	f.carts.items = []cart.Item{{ID: 1, CustomerID: 1, ProductID: 10, Quantity: 1}}
	f.addresses.byID[7] = &customer.DeliveryAddress{ID: 7, CustomerID: 2}

	addrID := int64(7)
	_, err := f.svc.PlaceOrder(context.Background(), testCustomer(1), PlaceOrderRequest{DeliveryAddressID: &addrID})
	require.ErrorIs(t, err, ErrInvalidAddress)
	assert.Nil(t, f.orders.created)
}

func TestPlaceOrder_CreateFailureSendsNothing(t *testing.T) {
	f := newFixture()
	f.products.byID[10] = testProduct(10, "Grillworst", "10.00")
	f.carts.items = []cart.Item{{ID: 1, CustomerID: 1, ProductID: 10, Quantity: 1}}
	f.orders.createErr = errors.New("db write failed")

	_, err := f.svc.PlaceOrder(context.Background(), testCustomer(1), PlaceOrderRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Empty(t, f.notifier.placed)
}

func TestAdminCreate_PricesForDesignatedCustomer(t *testing.T) {
	f := newFixture()
	f.products.byID[10] = testProduct(10, "Grillworst", "10.00")
	c := testCustomer(4)
	c.Discount = 2
	f.customers.byID[4] = &c

	detail, err := f.svc.AdminCreate(context.Background(), AdminCreateRequest{
		CustomerID: 4,
		Lines:      []InputLine{{ProductID: 10, Quantity: 5}},
	})
	require.NoError(t, err)

	assert.Equal(t, "9.80", f.orders.createdItems[0].Price.StringFixed(2))
	assert.Equal(t, "49.00", detail.Total.StringFixed(2))
	// Staff creation must not clear anyone's cart.
	assert.Equal(t, int64(0), f.orders.clearedCartOf)
	assert.Empty(t, f.notifier.placed)
}

func TestAdminCreate_NoLines(t *testing.T) {
	f := newFixture()
	_, err := f.svc.AdminCreate(context.Background(), AdminCreateRequest{CustomerID: 1})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func existingDetail(status Status) *Detail {
	return &Detail{
		Order: Order{ID: 50, CustomerID: 1, Status: status, Total: money("25.00")},
		Items: []ItemDetail{
			{Item: Item{ID: 500, OrderID: 50, ProductID: 10, Quantity: 2, Price: money("10.00")}},
			{Item: Item{ID: 501, OrderID: 50, ProductID: 11, Quantity: 1, Price: money("5.00")}},
		},
		Customer: testCustomer(1),
	}
}

func TestUpdate_LockedOrderRejected(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			f.orders.detail = existingDetail(status)

			_, err := f.svc.Update(context.Background(), 50, UpdateRequest{
				Lines: []UpdateLine{{ItemID: 500, ProductID: 10, Quantity: 9}},
			})
			require.ErrorIs(t, err, ErrLocked)
			assert.False(t, f.orders.itemsSaved)
		})
	}
}

func TestUpdate_ReconcilesItems(t *testing.T) {
	f := newFixture()
	f.orders.detail = existingDetail(StatusPending)
	f.products.byID[12] = testProduct(12, "Rookworst", "3.00")

	_, err := f.svc.Update(context.Background(), 50, UpdateRequest{
		Lines: []UpdateLine{
			{ItemID: 500, ProductID: 10, Quantity: 4}, // quantity change, keeps frozen price
			{ProductID: 12, Quantity: 2},              // new line at current price
			// item 501 omitted -> deleted
		},
		Notes: "aangepast",
	})
	require.NoError(t, err)

	require.True(t, f.orders.itemsSaved)
	require.Len(t, f.orders.upserts, 2)
	assert.Equal(t, int64(500), f.orders.upserts[0].ID)
	assert.Equal(t, 4, f.orders.upserts[0].Quantity)
	assert.Equal(t, "10.00", f.orders.upserts[0].Price.StringFixed(2))
	assert.Equal(t, int64(0), f.orders.upserts[1].ID)
	assert.Equal(t, "3.00", f.orders.upserts[1].Price.StringFixed(2))
	assert.Equal(t, []int64{501}, f.orders.deleteIDs)
	// 4 * 10.00 + 2 * 3.00
	assert.Equal(t, "46.00", f.orders.savedTotal.StringFixed(2))
	assert.Equal(t, "aangepast", f.orders.savedNotes)
}

func TestUpdateStatus_CompletedFiresShipped(t *testing.T) {
	f := newFixture()
	f.orders.detail = existingDetail(StatusConfirmed)

	require.NoError(t, f.svc.UpdateStatus(context.Background(), 50, StatusCompleted))
	assert.Equal(t, StatusCompleted, f.orders.lastStatus)
	require.Len(t, f.notifier.shipped, 1)
	assert.Equal(t, StatusCompleted, f.notifier.shipped[0].Status)
}

func TestUpdateStatus_AlreadyCompletedSendsNothing(t *testing.T) {
	f := newFixture()
	f.orders.detail = existingDetail(StatusCompleted)

	require.NoError(t, f.svc.UpdateStatus(context.Background(), 50, StatusCompleted))
	assert.Empty(t, f.notifier.shipped)
}

func TestUpdateStatus_InvalidValue(t *testing.T) {
	f := newFixture()
	err := f.svc.UpdateStatus(context.Background(), 50, Status("shipped"))
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBulkUpdateStatus_NoPerOrderMail(t *testing.T) {
	f := newFixture()
	f.orders.detail = existingDetail(StatusPending)

	err := f.svc.BulkUpdateStatus(context.Background(), []int64{50, 51}, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, []int64{50, 51}, f.orders.statusIDs)
	assert.Empty(t, f.notifier.shipped)
}

func TestGetForCustomer_ForeignOrder(t *testing.T) {
	f := newFixture()
	f.orders.detail = existingDetail(StatusPending)

	_, err := f.svc.GetForCustomer(context.Background(), testCustomer(2), 50)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSearch_QueryParsing(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Search(context.Background(), StatusPending, "#42", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), f.orders.lastFilter.QueryID)
	assert.Equal(t, "42", f.orders.lastFilter.Query)
	assert.Equal(t, StatusPending, f.orders.lastFilter.Status)

	_, err = f.svc.Search(context.Background(), "", "slagerij", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.orders.lastFilter.QueryID)
	assert.Equal(t, "slagerij", f.orders.lastFilter.Query)
}

func TestSearch_InvalidStatus(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Search(context.Background(), Status("archived"), "", 0)
	require.ErrorIs(t, err, ErrInvalidStatus)
}
