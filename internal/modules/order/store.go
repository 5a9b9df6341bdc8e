// README: Order store backed by PostgreSQL. Conditional updates re-check
// preconditions in the WHERE clause so concurrent writers cannot both win.
package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deliverycity/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	var coordsLat, coordsLng *float64
	if o.CustomerCoords != nil {
		coordsLat, coordsLng = &o.CustomerCoords.Lat, &o.CustomerCoords.Lng
	}
	var changeFor *int64
	if o.ChangeFor != nil {
		changeFor = &o.ChangeFor.Amount
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO orders (
			id, restaurant_id, restaurant_name, customer_id, customer_name,
			customer_address, customer_lat, customer_lng,
			items, subtotal, delivery_fee, platform_fee, courier_earnings, total,
			payment_method, change_for, status, status_version, rejected_by, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20
		)`,
		string(o.ID), string(o.RestaurantID), o.RestaurantName, string(o.CustomerID), o.CustomerName,
		o.CustomerAddress, coordsLat, coordsLng,
		items, o.Subtotal.Amount, o.DeliveryFee.Amount, o.PlatformFee.Amount, o.CourierEarnings.Amount, o.Total.Amount,
		string(o.PaymentMethod), changeFor, string(o.Status), o.StatusVersion, rejectedStrings(o.RejectedBy), o.CreatedAt,
	)
	return err
}

const orderColumns = `
	id, restaurant_id, restaurant_name, customer_id, customer_name,
	customer_address, customer_lat, customer_lng,
	items, subtotal, delivery_fee, platform_fee, courier_earnings, total,
	payment_method, change_for, status, status_version, courier_id, rejected_by,
	pickup_code, delivery_code, rating,
	created_at, assigned_at, delivered_at, cancelled_at`

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

func (s *Store) List(ctx context.Context, f Filter) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if len(f.Statuses) > 0 {
		query += ` AND status = ANY(` + arg(statusStrings(f.Statuses)) + `)`
	}
	if f.CustomerID != "" {
		query += ` AND customer_id = ` + arg(string(f.CustomerID))
	}
	if f.RestaurantID != "" {
		query += ` AND restaurant_id = ` + arg(string(f.RestaurantID))
	}
	if f.CourierID != "" {
		query += ` AND courier_id = ` + arg(string(f.CourierID))
	}
	if f.Unassigned {
		query += ` AND courier_id IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetStatus performs a compare-and-set on the status column. Returns false
// when the order was not in `from` at write time.
func (s *Store) SetStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    delivered_at = CASE WHEN $1 = 'DELIVERED' THEN NOW() ELSE delivered_at END,
		    cancelled_at = CASE WHEN $1 = 'CANCELLED' THEN NOW() ELSE cancelled_at END
		WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AssignCourier claims the order for a courier. The WHERE clause re-checks
// the READY + unassigned precondition at the authoritative write; COALESCE
// keeps verification codes stable if they were ever written before.
func (s *Store) AssignCourier(ctx context.Context, id, courierID types.ID, pickupCode, deliveryCode string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET courier_id = $1,
		    status = 'ASSIGNED',
		    status_version = status_version + 1,
		    pickup_code = COALESCE(pickup_code, $2),
		    delivery_code = COALESCE(delivery_code, $3),
		    assigned_at = NOW()
		WHERE id = $4 AND status = 'READY' AND courier_id IS NULL`,
		string(courierID), pickupCode, deliveryCode, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AddRejectedCourier(ctx context.Context, id, courierID types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE orders
		SET rejected_by = array_append(rejected_by, $1)
		WHERE id = $2 AND NOT ($1 = ANY(rejected_by))`,
		string(courierID), string(id),
	)
	return err
}

// SetRating writes the review once; a second write finds rating non-null and
// affects no rows.
func (s *Store) SetRating(ctx context.Context, id types.ID, r Rating) (bool, error) {
	blob, err := json.Marshal(r)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET rating = $1 WHERE id = $2 AND rating IS NULL`,
		blob, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_status_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, idPtr(e.ActorID), e.CreatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var lat, lng sql.NullFloat64
	var itemsBlob []byte
	var subtotal, deliveryFee, platformFee, courierEarnings, total int64
	var changeFor sql.NullInt64
	var courierID sql.NullString
	var rejected []string
	var pickupCode, deliveryCode sql.NullString
	var ratingBlob []byte
	var assignedAt, deliveredAt, cancelledAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.RestaurantName, &o.CustomerID, &o.CustomerName,
		&o.CustomerAddress, &lat, &lng,
		&itemsBlob, &subtotal, &deliveryFee, &platformFee, &courierEarnings, &total,
		&o.PaymentMethod, &changeFor, &o.Status, &o.StatusVersion, &courierID, &rejected,
		&pickupCode, &deliveryCode, &ratingBlob,
		&o.CreatedAt, &assignedAt, &deliveredAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		o.CustomerCoords = &types.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if len(itemsBlob) > 0 {
		if err := json.Unmarshal(itemsBlob, &o.Items); err != nil {
			return nil, err
		}
	}
	o.Subtotal = types.BRL(subtotal)
	o.DeliveryFee = types.BRL(deliveryFee)
	o.PlatformFee = types.BRL(platformFee)
	o.CourierEarnings = types.BRL(courierEarnings)
	o.Total = types.BRL(total)
	if changeFor.Valid {
		m := types.BRL(changeFor.Int64)
		o.ChangeFor = &m
	}
	if courierID.Valid {
		id := types.ID(courierID.String)
		o.CourierID = &id
	}
	for _, r := range rejected {
		o.RejectedBy = append(o.RejectedBy, types.ID(r))
	}
	o.PickupCode = pickupCode.String
	o.DeliveryCode = deliveryCode.String
	if len(ratingBlob) > 0 {
		var r Rating
		if err := json.Unmarshal(ratingBlob, &r); err != nil {
			return nil, err
		}
		o.Rating = &r
	}
	o.AssignedAt = timePtr(assignedAt)
	o.DeliveredAt = timePtr(deliveredAt)
	o.CancelledAt = timePtr(cancelledAt)
	return &o, nil
}

func rejectedStrings(ids []types.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func statusStrings(ss []Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
