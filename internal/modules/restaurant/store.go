// README: Postgres-backed restaurant and product persistence.
package restaurant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deliverycity/internal/types"
)

var ErrNotFound = errors.New("restaurant not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const restaurantColumns = `id, owner_id, name, category, phone, address,
	lat, lng, image_url, average_rating, ratings_count, is_open, created_at`

func (s *Store) Create(ctx context.Context, r *Restaurant) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO restaurants
			(id, owner_id, name, category, phone, address, lat, lng,
			 image_url, average_rating, ratings_count, is_open, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(r.ID), string(r.OwnerID), r.Name, r.Category, r.Phone, r.Address,
		r.Coords.Lat, r.Coords.Lng, r.ImageURL,
		r.AverageRating, r.RatingsCount, r.IsOpen, r.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Restaurant, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`,
		string(id),
	)
	r, err := scanRestaurant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListByRating returns restaurants best-rated first, matching the storefront
// ordering.
func (s *Store) ListByRating(ctx context.Context, limit int) ([]*Restaurant, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants
		 ORDER BY average_rating DESC, name ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplyRating folds one star rating into the rolling average in a single
// statement so concurrent ratings never lose updates.
func (s *Store) ApplyRating(ctx context.Context, id types.ID, stars int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE restaurants SET
		    average_rating = (average_rating * ratings_count + $1) / (ratings_count + 1),
		    ratings_count = ratings_count + 1
		WHERE id = $2`,
		stars, string(id),
	)
	return err
}

func (s *Store) SetOpen(ctx context.Context, id types.ID, open bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE restaurants SET is_open = $1 WHERE id = $2`,
		open, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const productColumns = `id, restaurant_id, name, description, price_cents,
	image_url, available, created_at`

func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO products
			(id, restaurant_id, name, description, price_cents, image_url, available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(p.ID), string(p.RestaurantID), p.Name, p.Description,
		p.PriceCents, p.ImageURL, p.Available, p.CreatedAt,
	)
	return err
}

func (s *Store) UpdateProduct(ctx context.Context, p *Product) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE products SET
		    name = $1, description = $2, price_cents = $3,
		    image_url = $4, available = $5
		WHERE id = $6 AND restaurant_id = $7`,
		p.Name, p.Description, p.PriceCents, p.ImageURL, p.Available,
		string(p.ID), string(p.RestaurantID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, restaurantID, productID types.ID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND restaurant_id = $2`,
		string(productID), string(restaurantID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context, restaurantID types.ID) ([]*Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE restaurant_id = $1 ORDER BY name ASC`,
		string(restaurantID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// ProductsByIDs loads the subset of a restaurant's menu matched by ids.
// Missing ids are simply absent from the result.
func (s *Store) ProductsByIDs(ctx context.Context, restaurantID types.ID, ids []types.ID) ([]*Product, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE restaurant_id = $1 AND id = ANY($2)`,
		string(restaurantID), strs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row rowScanner) (*Restaurant, error) {
	var (
		r           Restaurant
		id, ownerID string
	)
	err := row.Scan(
		&id, &ownerID, &r.Name, &r.Category, &r.Phone, &r.Address,
		&r.Coords.Lat, &r.Coords.Lng, &r.ImageURL,
		&r.AverageRating, &r.RatingsCount, &r.IsOpen, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ID = types.ID(id)
	r.OwnerID = types.ID(ownerID)
	return &r, nil
}

func collectProducts(rows pgx.Rows) ([]*Product, error) {
	var out []*Product
	for rows.Next() {
		var (
			p                Product
			id, restaurantID string
		)
		err := rows.Scan(
			&id, &restaurantID, &p.Name, &p.Description, &p.PriceCents,
			&p.ImageURL, &p.Available, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.ID = types.ID(id)
		p.RestaurantID = types.ID(restaurantID)
		out = append(out, &p)
	}
	return out, rows.Err()
}
