package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebastiaan36/louman/internal/domain/customer"
)

const (
	addressColumns = `id, customer_id, name, street_name, house_number,
		postal_code, city, COALESCE(notes, ''), is_default, created_at`

	listAddressesSQL = `SELECT ` + addressColumns + `
		FROM delivery_addresses WHERE customer_id = $1
		ORDER BY is_default DESC, name`

	getAddressByIDSQL = `SELECT ` + addressColumns + ` FROM delivery_addresses WHERE id = $1`

	createAddressSQL = `INSERT INTO delivery_addresses
		(customer_id, name, street_name, house_number, postal_code, city, notes, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	updateAddressSQL = `UPDATE delivery_addresses SET
		name = $2, street_name = $3, house_number = $4, postal_code = $5,
		city = $6, notes = $7, is_default = $8
		WHERE id = $1`

	deleteAddressSQL = `DELETE FROM delivery_addresses WHERE id = $1`

	clearDefaultAddressSQL = `UPDATE delivery_addresses SET is_default = FALSE
		WHERE customer_id = $1 AND is_default = TRUE`
)

var _ customer.AddressRepository = (*AddressRepository)(nil)

// AddressRepository implements customer.AddressRepository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// ListByCustomer returns the customer's delivery addresses, default first.
func (r *AddressRepository) ListByCustomer(ctx context.Context, customerID int64) ([]customer.DeliveryAddress, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// GetByID returns a delivery address by its identifier.
func (r *AddressRepository) GetByID(ctx context.Context, id int64) (*customer.DeliveryAddress, error) {
	rows, err := r.pool.Query(ctx, getAddressByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrAddressNotFound
		}
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	return &a, nil
}

// Create persists a new delivery address.
func (r *AddressRepository) Create(ctx context.Context, a *customer.DeliveryAddress) error {
	err := r.pool.QueryRow(ctx, createAddressSQL,
		a.CustomerID, a.Name, a.StreetName, a.HouseNumber,
		a.PostalCode, a.City, nullIfEmpty(a.Notes), a.IsDefault,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating address: %w", err)
	}
	return nil
}

// Update rewrites a delivery address.
func (r *AddressRepository) Update(ctx context.Context, a *customer.DeliveryAddress) error {
	tag, err := r.pool.Exec(ctx, updateAddressSQL,
		a.ID, a.Name, a.StreetName, a.HouseNumber,
		a.PostalCode, a.City, nullIfEmpty(a.Notes), a.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("updating address %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrAddressNotFound
	}
	return nil
}

// Delete removes a delivery address.
func (r *AddressRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteAddressSQL, id)
	if err != nil {
		return fmt.Errorf("deleting address %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrAddressNotFound
	}
	return nil
}

// ClearDefault unsets is_default on every address of the customer.
func (r *AddressRepository) ClearDefault(ctx context.Context, customerID int64) error {
	if _, err := r.pool.Exec(ctx, clearDefaultAddressSQL, customerID); err != nil {
		return fmt.Errorf("clearing default address: %w", err)
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (customer.DeliveryAddress, error) {
	var a customer.DeliveryAddress
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.Name, &a.StreetName, &a.HouseNumber,
		&a.PostalCode, &a.City, &a.Notes, &a.IsDefault, &a.CreatedAt,
	)
	return a, err
}
