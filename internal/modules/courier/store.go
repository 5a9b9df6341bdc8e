// README: Courier store: profile rows in PostgreSQL, live positions in a
// Redis GEO set.
package courier

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"deliverycity/internal/types"
)

const geoKey = "geo:couriers"

var ErrNotFound = errors.New("courier not found")

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

func (s *Store) Create(ctx context.Context, p *Profile) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO couriers (
			id, name, email, phone, vehicle_type, license_plate, pix_key,
			status, average_rating, ratings_count, balance, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(p.ID), p.Name, p.Email, p.Phone, p.VehicleType, p.LicensePlate, p.PixKey,
		string(p.Status), p.AverageRating, p.RatingsCount, p.BalanceCents, p.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, phone, vehicle_type, license_plate, pix_key,
		       status, average_rating, ratings_count, balance, last_completed_at, created_at
		FROM couriers WHERE id = $1`, string(id),
	)

	var p Profile
	var lastCompleted sql.NullTime
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.VehicleType, &p.LicensePlate, &p.PixKey,
		&p.Status, &p.AverageRating, &p.RatingsCount, &p.BalanceCents, &lastCompleted, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastCompleted.Valid {
		t := lastCompleted.Time
		p.LastCompletedAt = &t
	}
	return &p, nil
}

func (s *Store) UpdateContact(ctx context.Context, id types.ID, phone, vehicleType, licensePlate, pixKey string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE couriers
		SET phone = $1, vehicle_type = $2, license_plate = $3, pix_key = $4
		WHERE id = $5`,
		phone, vehicleType, licensePlate, pixKey, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetAccountStatus(ctx context.Context, id types.ID, status AccountStatus) error {
	tag, err := s.db.Exec(ctx, `UPDATE couriers SET status = $1 WHERE id = $2`, string(status), string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustBalance is a server-side atomic increment; it never reads the
// balance first.
func (s *Store) AdjustBalance(ctx context.Context, id types.ID, deltaCents int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE couriers SET balance = balance + $1 WHERE id = $2`, deltaCents, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkCompletedOrder(ctx context.Context, id types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE couriers SET last_completed_at = $1 WHERE id = $2`, at, string(id))
	return err
}

// ApplyRating folds one rating into the rolling average in a single UPDATE
// so concurrent reviews cannot lose counts.
func (s *Store) ApplyRating(ctx context.Context, id types.ID, stars int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE couriers
		SET average_rating = (average_rating * ratings_count + $1) / (ratings_count + 1),
		    ratings_count = ratings_count + 1
		WHERE id = $2`,
		stars, string(id),
	)
	return err
}

func (s *Store) SetPosition(ctx context.Context, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) Position(ctx context.Context, id types.ID) (*types.Point, error) {
	res, err := s.redis.GeoPos(ctx, geoKey, string(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || res[0] == nil {
		return nil, nil
	}
	return &types.Point{Lat: res[0].Latitude, Lng: res[0].Longitude}, nil
}

func (s *Store) RemovePosition(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, geoKey, string(id)).Err()
}
