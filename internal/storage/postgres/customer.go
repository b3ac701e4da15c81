package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/customer"
)

const (
	customerColumns = `id, user_id, company_name, contact_person, phone_number,
		street_name, house_number, postal_code, city, kvk_number, bank_account,
		vat_number, packing_slip_email, approved_at, approved_by,
		customer_category, discount_percentage, delivery_day, route_order,
		show_on_map, created_at`

	getCustomerByIDSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	getCustomerByUserSQL = `SELECT ` + customerColumns + ` FROM customers WHERE user_id = $1`

	listPendingCustomersSQL = `SELECT ` + customerColumns + `
		FROM customers WHERE approved_at IS NULL ORDER BY created_at`

	listApprovedCustomersSQL = `SELECT ` + customerColumns + `
		FROM customers WHERE approved_at IS NOT NULL ORDER BY company_name`

	listCustomersByDaySQL = `SELECT ` + customerColumns + `
		FROM customers WHERE approved_at IS NOT NULL AND delivery_day = $1
		ORDER BY route_order NULLS LAST, company_name`

	kvkExistsSQL = `SELECT EXISTS (SELECT 1 FROM customers WHERE kvk_number = $1)`

	updateCustomerSQL = `UPDATE customers SET
		company_name = $2, contact_person = $3, phone_number = $4,
		street_name = $5, house_number = $6, postal_code = $7, city = $8,
		bank_account = $9, vat_number = $10, packing_slip_email = $11,
		approved_at = $12, approved_by = $13, customer_category = $14,
		discount_percentage = $15, delivery_day = $16, show_on_map = $17,
		updated_at = now()
		WHERE id = $1`

	createUserSQL = `INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	createCustomerSQL = `INSERT INTO customers
		(user_id, company_name, contact_person, phone_number, street_name,
		 house_number, postal_code, city, kvk_number, bank_account, vat_number,
		 packing_slip_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	createAPIKeySQL = `INSERT INTO api_keys (user_id, key_hash, name) VALUES ($1, $2, $3)`

	setRouteOrderSQL = `UPDATE customers SET route_order = $1, updated_at = now()
		WHERE id = $2 AND delivery_day = $3`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	return &c, nil
}

// GetByUserID returns the customer record behind a login account.
func (r *CustomerRepository) GetByUserID(ctx context.Context, userID int64) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting customer for user %d: %w", userID, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer for user %d: %w", userID, err)
	}
	return &c, nil
}

// ListPending returns customers awaiting approval, oldest first.
func (r *CustomerRepository) ListPending(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listPendingCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing pending customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// ListApproved returns all approved customers by company name.
func (r *CustomerRepository) ListApproved(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listApprovedCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing approved customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// ListByDeliveryDay returns the approved customers of a delivery day in route
// order, unpositioned customers last.
func (r *CustomerRepository) ListByDeliveryDay(ctx context.Context, day customer.DeliveryDay) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersByDaySQL, string(day))
	if err != nil {
		return nil, fmt.Errorf("listing customers for %s: %w", day, err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// KvKExists reports whether a customer with the given KvK number exists.
func (r *CustomerRepository) KvKExists(ctx context.Context, kvkNumber string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, kvkExistsSQL, kvkNumber).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking kvk number: %w", err)
	}
	return exists, nil
}

// Update rewrites the mutable customer fields. The KvK number, owning user
// and route position are managed through dedicated paths.
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	tag, err := r.pool.Exec(ctx, updateCustomerSQL,
		c.ID, c.CompanyName, c.ContactPerson, c.PhoneNumber,
		c.StreetName, c.HouseNumber, c.PostalCode, c.City,
		c.BankAccount, c.VATNumber, nullIfEmpty(c.PackingSlipEmail),
		c.ApprovedAt, c.ApprovedBy, nullIfEmpty(string(c.Category)),
		nullIfZero(c.Discount), nullIfEmpty(string(c.DeliveryDay)), c.ShowOnMap,
	)
	if err != nil {
		return fmt.Errorf("updating customer %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

// CreateWithUser inserts the login account, the customer record and the
// customer's API key in a single transaction.
func (r *CustomerRepository) CreateWithUser(ctx context.Context, u *auth.User, c *customer.Customer, keyHash string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, createUserSQL, u.Name, u.Email, u.PasswordHash, string(u.Role)).
			Scan(&u.ID, &u.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return customer.ErrDuplicateEmail
			}
			return fmt.Errorf("creating user: %w", err)
		}

		c.UserID = u.ID
		err = tx.QueryRow(ctx, createCustomerSQL,
			c.UserID, c.CompanyName, c.ContactPerson, c.PhoneNumber,
			c.StreetName, c.HouseNumber, c.PostalCode, c.City,
			c.KvKNumber, c.BankAccount, c.VATNumber, nullIfEmpty(c.PackingSlipEmail),
		).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return customer.ErrDuplicateKvK
			}
			return fmt.Errorf("creating customer: %w", err)
		}

		if _, err := tx.Exec(ctx, createAPIKeySQL, u.ID, keyHash, c.CompanyName); err != nil {
			return fmt.Errorf("creating api key: %w", err)
		}
		return nil
	})
}

// SetRouteOrder assigns 1-based route positions on one delivery day in a
// single transaction.
func (r *CustomerRepository) SetRouteOrder(ctx context.Context, day customer.DeliveryDay, customerIDs []int64) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i, id := range customerIDs {
			if _, err := tx.Exec(ctx, setRouteOrderSQL, i+1, id, string(day)); err != nil {
				return fmt.Errorf("setting route position for customer %d: %w", id, err)
			}
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var (
		c                customer.Customer
		packingSlipEmail *string
		category         *string
		discount         *int
		deliveryDay      *string
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.CompanyName, &c.ContactPerson, &c.PhoneNumber,
		&c.StreetName, &c.HouseNumber, &c.PostalCode, &c.City, &c.KvKNumber,
		&c.BankAccount, &c.VATNumber, &packingSlipEmail, &c.ApprovedAt,
		&c.ApprovedBy, &category, &discount, &deliveryDay, &c.RouteOrder,
		&c.ShowOnMap, &c.CreatedAt,
	)
	c.PackingSlipEmail = orEmpty(packingSlipEmail)
	c.Category = customer.Category(orEmpty(category))
	c.Discount = orZero(discount)
	c.DeliveryDay = customer.DeliveryDay(orEmpty(deliveryDay))
	return c, err
}
