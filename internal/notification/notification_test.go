package notification

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/document"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/domain/product"
	"github.com/sebastiaan36/louman/internal/mail"
)

type mockMailer struct {
	sent []mail.Message
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockUserRepo struct {
	byID   map[int64]*auth.User
	admins []auth.User
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, _ string) (*auth.User, error) {
	return nil, auth.ErrUserNotFound
}

func (m *mockUserRepo) ListAdmins(_ context.Context) ([]auth.User, error) {
	return m.admins, nil
}

func (m *mockUserRepo) EmailExists(_ context.Context, _ string) (bool, error) { return false, nil }

func (m *mockUserRepo) UpdateEmail(_ context.Context, _ int64, _ string) error { return nil }

type mockRenderer struct {
	err error
}

func (m *mockRenderer) PackingSlip(_ document.PackingSlip) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []byte("%PDF-1.4 slip"), nil
}

func (m *mockRenderer) Invoice(_ document.Invoice) ([]byte, error)               { return nil, nil }
func (m *mockRenderer) ProductionList(_ document.ProductionList) ([]byte, error) { return nil, nil }
func (m *mockRenderer) CustomerOverview(_ document.CustomerOverview) ([]byte, error) {
	return nil, nil
}

func sampleDetail() order.Detail {
	return order.Detail{
		Order: order.Order{ID: 50, Total: decimal.RequireFromString("25.00")},
		Items: []order.ItemDetail{{
			Item:    order.Item{Quantity: 2, Price: decimal.RequireFromString("10.00")},
			Product: product.Product{ArticleNumber: "GW-100", Title: "Grillworst"},
		}},
		Customer: customer.Customer{
			ID: 30, UserID: 20, CompanyName: "Broodjes De Pijp",
			PackingSlipEmail: "bestellingen@depijp.nl",
		},
	}
}

func TestOrderPlaced(t *testing.T) {
	mailer := &mockMailer{}
	users := &mockUserRepo{admins: []auth.User{
		{Email: "baas@slagerij.nl"},
		{Email: "kantoor@slagerij.nl"},
	}}
	svc := NewService(mailer, users, &mockRenderer{})

	svc.OrderPlaced(context.Background(), sampleDetail())
	svc.Close()

	require.Len(t, mailer.sent, 2)

	staff := mailer.sent[0]
	assert.Equal(t, []string{"baas@slagerij.nl", "kantoor@slagerij.nl"}, staff.To)
	assert.Contains(t, staff.Subject, "#50")
	require.Len(t, staff.Attachments, 1)
	assert.Equal(t, "packing-slip-50.pdf", staff.Attachments[0].Filename)

	conf := mailer.sent[1]
	assert.Equal(t, []string{"bestellingen@depijp.nl"}, conf.To)
	assert.Contains(t, conf.Body, "2x Grillworst")
	assert.Contains(t, conf.Body, "Total: 25.00")
}

func TestOrderPlaced_FallsBackToLoginEmail(t *testing.T) {
	mailer := &mockMailer{}
	users := &mockUserRepo{byID: map[int64]*auth.User{
		20: {ID: 20, Email: "jan@depijp.nl"},
	}}
	svc := NewService(mailer, users, &mockRenderer{})

	d := sampleDetail()
	d.Customer.PackingSlipEmail = ""
	svc.OrderPlaced(context.Background(), d)
	svc.Close()

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"jan@depijp.nl"}, mailer.sent[0].To)
}

func TestOrderPlaced_RenderFailureStillMails(t *testing.T) {
	mailer := &mockMailer{}
	users := &mockUserRepo{admins: []auth.User{{Email: "baas@slagerij.nl"}}}
	svc := NewService(mailer, users, &mockRenderer{err: errors.New("font missing")})

	d := sampleDetail()
	d.Customer.PackingSlipEmail = ""
	svc.OrderPlaced(context.Background(), d)
	svc.Close()

	require.Len(t, mailer.sent, 1)
	assert.Empty(t, mailer.sent[0].Attachments)
}

func TestOrderShipped(t *testing.T) {
	mailer := &mockMailer{}
	svc := NewService(mailer, &mockUserRepo{}, &mockRenderer{})

	svc.OrderShipped(context.Background(), sampleDetail())
	svc.Close()

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Subject, "on its way")
}

func TestCustomerRegistered(t *testing.T) {
	mailer := &mockMailer{}
	users := &mockUserRepo{admins: []auth.User{{Email: "baas@slagerij.nl"}}}
	svc := NewService(mailer, users, &mockRenderer{})

	svc.CustomerRegistered(context.Background(), customer.Customer{
		ID: 30, CompanyName: "Broodjes De Pijp", KvKNumber: "12345678",
	})
	svc.Close()

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Subject, "Broodjes De Pijp")
}

func TestSendFailureIsSwallowed(t *testing.T) {
	mailer := &mockMailer{err: errors.New("relay down")}
	users := &mockUserRepo{admins: []auth.User{{Email: "baas@slagerij.nl"}}}
	svc := NewService(mailer, users, &mockRenderer{})

	// Must not panic or surface the error.
	svc.CustomerRegistered(context.Background(), customer.Customer{ID: 30})
	svc.OrderPlaced(context.Background(), sampleDetail())
	svc.Close()
	assert.Empty(t, mailer.sent)
}

type blockingMailer struct {
	release chan struct{}
	sent    chan mail.Message
}

func (m *blockingMailer) Send(_ context.Context, msg mail.Message) error {
	<-m.release
	m.sent <- msg
	return nil
}

func TestEventMailDoesNotBlockCaller(t *testing.T) {
	mailer := &blockingMailer{release: make(chan struct{}), sent: make(chan mail.Message, 1)}
	svc := NewService(mailer, &mockUserRepo{}, &mockRenderer{})

	done := make(chan struct{})
	go func() {
		svc.OrderShipped(context.Background(), sampleDetail())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OrderShipped waited for mail delivery")
	}

	close(mailer.release)
	msg := <-mailer.sent
	assert.Contains(t, msg.Subject, "on its way")
	svc.Close()
}
