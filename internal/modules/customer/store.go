// README: Postgres-backed customer address persistence.
package customer

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deliverycity/internal/types"
)

var ErrNotFound = errors.New("address not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const addressColumns = `id, customer_id, label, street, number, complement,
	district, city, lat, lng, created_at`

func (s *Store) Create(ctx context.Context, a *Address) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO customer_addresses
			(id, customer_id, label, street, number, complement,
			 district, city, lat, lng, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(a.ID), string(a.CustomerID), a.Label, a.Street, a.Number,
		a.Complement, a.District, a.City, a.Coords.Lat, a.Coords.Lng, a.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, customerID, addressID types.ID) (*Address, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM customer_addresses
		 WHERE id = $1 AND customer_id = $2`,
		string(addressID), string(customerID),
	)
	a, err := scanAddress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Store) ListByCustomer(ctx context.Context, customerID types.ID) ([]*Address, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+addressColumns+` FROM customer_addresses
		 WHERE customer_id = $1 ORDER BY created_at ASC`,
		string(customerID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, a *Address) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE customer_addresses SET
		    label = $1, street = $2, number = $3, complement = $4,
		    district = $5, city = $6, lat = $7, lng = $8
		WHERE id = $9 AND customer_id = $10`,
		a.Label, a.Street, a.Number, a.Complement, a.District, a.City,
		a.Coords.Lat, a.Coords.Lng, string(a.ID), string(a.CustomerID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, customerID, addressID types.ID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM customer_addresses WHERE id = $1 AND customer_id = $2`,
		string(addressID), string(customerID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (*Address, error) {
	var (
		a              Address
		id, customerID string
	)
	err := row.Scan(
		&id, &customerID, &a.Label, &a.Street, &a.Number, &a.Complement,
		&a.District, &a.City, &a.Coords.Lat, &a.Coords.Lng, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ID = types.ID(id)
	a.CustomerID = types.ID(customerID)
	return &a, nil
}
