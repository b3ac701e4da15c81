package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sebastiaan36/louman/internal/csvio"
	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/cart"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/document"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/domain/product"
	"github.com/sebastiaan36/louman/internal/pdf"
)

// The handler tests run the full HTTP stack over in-memory repositories, so
// routing, auth middleware, binding and error mapping are all exercised.

const testPepper = "test-pepper"

type memUsers struct {
	byID map[int64]*auth.User
	next int64
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memUsers) ListAdmins(_ context.Context) ([]auth.User, error) {
	var out []auth.User
	for _, u := range m.byID {
		if u.Role == auth.RoleAdmin {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(context.Background(), email)
	return err == nil, nil
}

func (m *memUsers) UpdateEmail(_ context.Context, id int64, email string) error {
	u, ok := m.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.Email = email
	return nil
}

func (m *memUsers) add(u *auth.User) {
	m.next++
	u.ID = m.next
	m.byID[u.ID] = u
}

type memKeys struct {
	byHash map[string]*auth.APIKeyInfo
	next   int64
}

func (m *memKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok || !info.Active {
		return nil, auth.ErrUnauthorized
	}
	cp := *info
	return &cp, nil
}

func (m *memKeys) add(userID int64, hash string) {
	m.next++
	m.byHash[hash] = &auth.APIKeyInfo{ID: m.next, UserID: userID, KeyHash: hash, Active: true}
}

type memCustomers struct {
	users *memUsers
	keys  *memKeys
	byID  map[int64]*customer.Customer
	next  int64
}

func (m *memCustomers) GetByID(_ context.Context, id int64) (*customer.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomers) GetByUserID(_ context.Context, userID int64) (*customer.Customer, error) {
	for _, c := range m.byID {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, customer.ErrNotFound
}

func (m *memCustomers) ListPending(_ context.Context) ([]customer.Customer, error) {
	return m.list(func(c *customer.Customer) bool { return !c.Approved() }), nil
}

func (m *memCustomers) ListApproved(_ context.Context) ([]customer.Customer, error) {
	return m.list(func(c *customer.Customer) bool { return c.Approved() }), nil
}

func (m *memCustomers) ListByDeliveryDay(_ context.Context, day customer.DeliveryDay) ([]customer.Customer, error) {
	out := m.list(func(c *customer.Customer) bool { return c.Approved() && c.DeliveryDay == day })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].RouteOrder, out[j].RouteOrder
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})
	return out, nil
}

func (m *memCustomers) list(keep func(*customer.Customer) bool) []customer.Customer {
	var out []customer.Customer
	for _, c := range m.byID {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memCustomers) KvKExists(_ context.Context, kvk string) (bool, error) {
	for _, c := range m.byID {
		if c.KvKNumber == kvk {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCustomers) Update(_ context.Context, c *customer.Customer) error {
	if _, ok := m.byID[c.ID]; !ok {
		return customer.ErrNotFound
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCustomers) CreateWithUser(_ context.Context, u *auth.User, c *customer.Customer, keyHash string) error {
	m.users.add(u)
	m.keys.add(u.ID, keyHash)
	m.next++
	c.ID = m.next
	c.UserID = u.ID
	c.CreatedAt = time.Now()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCustomers) SetRouteOrder(_ context.Context, day customer.DeliveryDay, ids []int64) error {
	for i, id := range ids {
		if c, ok := m.byID[id]; ok && c.DeliveryDay == day {
			pos := i + 1
			c.RouteOrder = &pos
		}
	}
	return nil
}

func (m *memCustomers) add(c *customer.Customer) {
	m.next++
	c.ID = m.next
	m.byID[c.ID] = c
}

type memAddresses struct {
	byID map[int64]*customer.DeliveryAddress
	next int64
}

func (m *memAddresses) ListByCustomer(_ context.Context, customerID int64) ([]customer.DeliveryAddress, error) {
	var out []customer.DeliveryAddress
	for _, a := range m.byID {
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memAddresses) GetByID(_ context.Context, id int64) (*customer.DeliveryAddress, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAddresses) Create(_ context.Context, a *customer.DeliveryAddress) error {
	m.next++
	a.ID = m.next
	a.CreatedAt = time.Now()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAddresses) Update(_ context.Context, a *customer.DeliveryAddress) error {
	if _, ok := m.byID[a.ID]; !ok {
		return customer.ErrAddressNotFound
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAddresses) Delete(_ context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return customer.ErrAddressNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memAddresses) ClearDefault(_ context.Context, customerID int64) error {
	for _, a := range m.byID {
		if a.CustomerID == customerID {
			a.IsDefault = false
		}
	}
	return nil
}

type memProducts struct {
	byID map[int64]*product.Product
	next int64
}

func (m *memProducts) List(_ context.Context) ([]product.Product, error) {
	return m.listWhere(func(*product.Product) bool { return true }), nil
}

func (m *memProducts) ListActive(_ context.Context) ([]product.Product, error) {
	return m.listWhere(func(p *product.Product) bool { return p.IsActive }), nil
}

func (m *memProducts) listWhere(keep func(*product.Product) bool) []product.Product {
	var out []product.Product
	for _, p := range m.byID {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArticleNumber < out[j].ArticleNumber })
	return out
}

func (m *memProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) GetByArticleNumber(_ context.Context, article string) (*product.Product, error) {
	for _, p := range m.byID {
		if p.ArticleNumber == article {
			cp := *p
			return &cp, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *memProducts) Create(_ context.Context, p *product.Product) error {
	m.next++
	p.ID = m.next
	p.CreatedAt = time.Now()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) Update(_ context.Context, p *product.Product) error {
	if _, ok := m.byID[p.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) Delete(_ context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return product.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memCategories struct {
	byID map[int64]*product.Category
	next int64
}

func (m *memCategories) List(_ context.Context) ([]product.Category, error) {
	var out []product.Category
	for _, c := range m.byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *memCategories) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := m.byID[id]
	return ok, nil
}

func (m *memCategories) Create(_ context.Context, c *product.Category) error {
	m.next++
	c.ID = m.next
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCategories) Update(_ context.Context, c *product.Category) error {
	if _, ok := m.byID[c.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCategories) Delete(_ context.Context, id int64) error {
	delete(m.byID, id)
	return nil
}

type memFavorites struct {
	products *memProducts
	marked   map[int64]map[int64]bool
}

func (m *memFavorites) ListByCustomer(_ context.Context, customerID int64) ([]product.Product, error) {
	var out []product.Product
	for productID := range m.marked[customerID] {
		if p, ok := m.products.byID[productID]; ok {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArticleNumber < out[j].ArticleNumber })
	return out, nil
}

func (m *memFavorites) IsFavorite(_ context.Context, customerID, productID int64) (bool, error) {
	return m.marked[customerID][productID], nil
}

func (m *memFavorites) Add(_ context.Context, customerID, productID int64) error {
	if m.marked[customerID] == nil {
		m.marked[customerID] = make(map[int64]bool)
	}
	m.marked[customerID][productID] = true
	return nil
}

func (m *memFavorites) Remove(_ context.Context, customerID, productID int64) error {
	delete(m.marked[customerID], productID)
	return nil
}

type memCarts struct {
	byID map[int64]*cart.Item
	next int64
}

func (m *memCarts) ListByCustomer(_ context.Context, customerID int64) ([]cart.Item, error) {
	var out []cart.Item
	for _, item := range m.byID {
		if item.CustomerID == customerID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCarts) GetByID(_ context.Context, id int64) (*cart.Item, error) {
	item, ok := m.byID[id]
	if !ok {
		return nil, cart.ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memCarts) GetByProduct(_ context.Context, customerID, productID int64) (*cart.Item, error) {
	for _, item := range m.byID {
		if item.CustomerID == customerID && item.ProductID == productID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, cart.ErrItemNotFound
}

func (m *memCarts) Create(_ context.Context, item *cart.Item) error {
	m.next++
	item.ID = m.next
	item.CreatedAt = time.Now()
	cp := *item
	m.byID[item.ID] = &cp
	return nil
}

func (m *memCarts) UpdateQuantity(_ context.Context, id int64, quantity int) error {
	item, ok := m.byID[id]
	if !ok {
		return cart.ErrItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *memCarts) Delete(_ context.Context, id int64) error {
	delete(m.byID, id)
	return nil
}

func (m *memCarts) DeleteByCustomer(_ context.Context, customerID int64) error {
	for id, item := range m.byID {
		if item.CustomerID == customerID {
			delete(m.byID, id)
		}
	}
	return nil
}

type memOrders struct {
	customers *memCustomers
	addresses *memAddresses
	products  *memProducts
	carts     *memCarts

	orders   map[int64]*order.Order
	items    map[int64]*order.Item
	nextID   int64
	nextItem int64
}

func (m *memOrders) GetByID(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) GetDetail(ctx context.Context, id int64) (*order.Detail, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}

	d := order.Detail{Order: *o}
	c, err := m.customers.GetByID(ctx, o.CustomerID)
	if err != nil {
		return nil, err
	}
	d.Customer = *c
	if o.DeliveryAddressID != nil {
		if a, err := m.addresses.GetByID(ctx, *o.DeliveryAddressID); err == nil {
			d.Address = a
		}
	}

	var ids []int64
	for _, item := range m.items {
		if item.OrderID == id {
			ids = append(ids, item.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, itemID := range ids {
		item := m.items[itemID]
		p, err := m.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, order.ItemDetail{Item: *item, Product: *p})
	}
	return &d, nil
}

func (m *memOrders) Search(ctx context.Context, f order.Filter) ([]order.Summary, error) {
	var out []order.Summary
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CustomerID != 0 && o.CustomerID != f.CustomerID {
			continue
		}
		c, err := m.customers.GetByID(ctx, o.CustomerID)
		if err != nil {
			return nil, err
		}
		if f.Query != "" && o.ID != f.QueryID &&
			!strings.Contains(strings.ToLower(c.CompanyName), strings.ToLower(f.Query)) {
			continue
		}
		count := 0
		for _, item := range m.items {
			if item.OrderID == o.ID {
				count++
			}
		}
		out = append(out, order.Summary{
			Order:       *o,
			CompanyName: c.CompanyName,
			DeliveryDay: c.DeliveryDay,
			ItemCount:   count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memOrders) ListPendingDetails(ctx context.Context) ([]order.Detail, error) {
	var ids []int64
	for id, o := range m.orders {
		if o.Status == order.StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]order.Detail, 0, len(ids))
	for _, id := range ids {
		d, err := m.GetDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *memOrders) CreateWithItems(ctx context.Context, o *order.Order, items []order.Item, clearCartOf int64) error {
	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	m.orders[o.ID] = &cp

	for i := range items {
		m.nextItem++
		items[i].ID = m.nextItem
		items[i].OrderID = o.ID
		itemCopy := items[i]
		m.items[itemCopy.ID] = &itemCopy
	}
	if clearCartOf != 0 {
		return m.carts.DeleteByCustomer(ctx, clearCartOf)
	}
	return nil
}

func (m *memOrders) UpdateItems(_ context.Context, orderID int64, upserts []order.Item, deleteIDs []int64, total decimal.Decimal, notes string) error {
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	for _, up := range upserts {
		if up.ID != 0 {
			m.items[up.ID].Quantity = up.Quantity
			continue
		}
		m.nextItem++
		up.ID = m.nextItem
		up.OrderID = orderID
		cp := up
		m.items[cp.ID] = &cp
	}
	for _, id := range deleteIDs {
		delete(m.items, id)
	}
	o.Total = total
	o.Notes = notes
	o.UpdatedAt = time.Now()
	return nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id int64, status order.Status) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func (m *memOrders) BulkUpdateStatus(_ context.Context, ids []int64, status order.Status) error {
	for _, id := range ids {
		if o, ok := m.orders[id]; ok {
			o.Status = status
		}
	}
	return nil
}

type noopNotifier struct{}

func (noopNotifier) OrderPlaced(context.Context, order.Detail)             {}
func (noopNotifier) OrderShipped(context.Context, order.Detail)            {}
func (noopNotifier) CustomerRegistered(context.Context, customer.Customer) {}
func (noopNotifier) CustomerApproved(context.Context, customer.Customer)   {}

type stubInvoices struct {
	sent []string
}

func (s *stubInvoices) InvoiceIssued(_ context.Context, _ order.Detail, inv document.Invoice, _ []byte) error {
	s.sent = append(s.sent, inv.Number)
	return nil
}

// fixture bundles the server under test with its seeded state.
type fixture struct {
	echo      *echo.Echo
	users     *memUsers
	keys      *memKeys
	customers *memCustomers
	addresses *memAddresses
	products  *memProducts
	carts     *memCarts
	orders    *memOrders
	invoices  *stubInvoices

	adminKey    string
	customerKey string
	customerID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := &memUsers{byID: make(map[int64]*auth.User)}
	keys := &memKeys{byHash: make(map[string]*auth.APIKeyInfo)}
	customers := &memCustomers{users: users, keys: keys, byID: make(map[int64]*customer.Customer)}
	addresses := &memAddresses{byID: make(map[int64]*customer.DeliveryAddress)}
	products := &memProducts{byID: make(map[int64]*product.Product)}
	categories := &memCategories{byID: make(map[int64]*product.Category)}
	favorites := &memFavorites{products: products, marked: make(map[int64]map[int64]bool)}
	carts := &memCarts{byID: make(map[int64]*cart.Item)}
	orders := &memOrders{
		customers: customers, addresses: addresses, products: products, carts: carts,
		orders: make(map[int64]*order.Order), items: make(map[int64]*order.Item),
	}
	invoices := &stubInvoices{}

	f := &fixture{
		users: users, keys: keys, customers: customers, addresses: addresses,
		products: products, carts: carts, orders: orders, invoices: invoices,
		adminKey:    "admin-key",
		customerKey: "customer-key",
	}

	admin := &auth.User{Name: "Sebastiaan", Email: "sebastiaan@slagerijlouman.nl", Role: auth.RoleAdmin}
	users.add(admin)
	keys.add(admin.ID, auth.HashKey(f.adminKey, []byte(testPepper)))

	custUser := &auth.User{Name: "Broodje Bram", Email: "bram@broodjebram.nl", Role: auth.RoleCustomer}
	users.add(custUser)
	keys.add(custUser.ID, auth.HashKey(f.customerKey, []byte(testPepper)))

	approvedAt := time.Now().Add(-24 * time.Hour)
	cust := &customer.Customer{
		UserID:        custUser.ID,
		CompanyName:   "Broodje Bram",
		ContactPerson: "Bram de Boer",
		PhoneNumber:   "020-1234567",
		StreetName:    "Kinkerstraat",
		HouseNumber:   "12",
		PostalCode:    "1053 DM",
		City:          "Amsterdam",
		KvKNumber:     "87654321",
		ApprovedAt:    &approvedAt,
		ApprovedBy:    &admin.ID,
		Category:      customer.CategorySandwichShop,
		Discount:      2,
		DeliveryDay:   customer.DayThursday,
	}
	customers.add(cust)
	f.customerID = cust.ID

	products.byID[1] = &product.Product{
		ID: 1, ArticleNumber: "GW-100", Title: "Grillworst",
		Price: decimal.RequireFromString("10.00"), InStock: true, IsActive: true,
	}
	products.byID[2] = &product.Product{
		ID: 2, ArticleNumber: "OS-200", Title: "Ossenworst",
		Price: decimal.RequireFromString("5.50"), InStock: true, IsActive: true,
	}
	products.byID[3] = &product.Product{
		ID: 3, ArticleNumber: "ZZ-900", Title: "Seizoensworst",
		Price: decimal.RequireFromString("7.00"), InStock: true, IsActive: false,
	}
	products.next = 3

	customerSvc := customer.NewService(customers, addresses, users, noopNotifier{}, []byte(testPepper))
	cartSvc := cart.NewService(carts, products)
	orderSvc := order.NewService(orders, products, carts, customers, addresses, noopNotifier{})
	documentSvc := document.NewService(orders, customers)

	h := New(Deps{
		Customers:   customerSvc,
		Carts:       cartSvc,
		Orders:      orderSvc,
		Documents:   documentSvc,
		Products:    products,
		Categories:  categories,
		Favorites:   favorites,
		Users:       users,
		APIKeys:     keys,
		ProductCSV:  csvio.NewProductCSV(products),
		CustomerCSV: csvio.NewCustomerCSV(customers, users),
		Renderer:    pdf.NewRenderer(),
		Invoices:    invoices,
		KeyPepper:   []byte(testPepper),
	})

	e := echo.New()
	h.Register(e)
	f.echo = e
	return f
}

// do performs a request against the fixture server and returns the recorder.
func (f *fixture) do(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if key != "" {
		req.Header.Set(apiKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

// rawRequest builds an unauthenticated request for tests that set their own
// headers.
func (f *fixture) rawRequest(method, path string, body io.Reader) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(method, path, body), httptest.NewRecorder()
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
