// README: Courier service: registration, position stream, wallet, and the
// dispatch-facing profile reads.
package courier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"deliverycity/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type Service struct {
	store *Store
	log   *slog.Logger
}

func NewService(store *Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

type RegisterCommand struct {
	ID           types.ID
	Name         string
	Email        string
	Phone        string
	VehicleType  string
	LicensePlate string
	PixKey       string
}

// Register creates a courier account in PENDING; an admin approves it before
// any offers are shown.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Profile, error) {
	if cmd.ID == "" || cmd.Name == "" {
		return nil, ErrBadRequest
	}
	p := &Profile{
		ID:           cmd.ID,
		Name:         cmd.Name,
		Email:        cmd.Email,
		Phone:        cmd.Phone,
		VehicleType:  cmd.VehicleType,
		LicensePlate: cmd.LicensePlate,
		PixKey:       cmd.PixKey,
		Status:       AccountPending,
		CreatedAt:    time.Now(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get loads the profile and attaches the last known position when the GEO
// index has one. A position lookup failure degrades to a profile without
// position rather than failing the read.
func (s *Service) Get(ctx context.Context, id types.ID) (*Profile, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pos, err := s.store.Position(ctx, id)
	if err != nil {
		s.log.Warn("courier position lookup failed", "courier_id", id, "error", err)
	} else {
		p.Position = pos
	}
	return p, nil
}

// UpdatePosition handles the device's high-frequency location stream. Only
// the latest point matters; a dropped update is harmless, so errors are
// logged and swallowed.
func (s *Service) UpdatePosition(ctx context.Context, id types.ID, pos types.Point) {
	if err := s.store.SetPosition(ctx, id, pos); err != nil {
		s.log.Warn("courier position update dropped", "courier_id", id, "error", err)
	}
}

func (s *Service) UpdateContact(ctx context.Context, id types.ID, phone, vehicleType, licensePlate, pixKey string) error {
	return s.store.UpdateContact(ctx, id, phone, vehicleType, licensePlate, pixKey)
}

func (s *Service) Approve(ctx context.Context, id types.ID) error {
	return s.store.SetAccountStatus(ctx, id, AccountApproved)
}

func (s *Service) Block(ctx context.Context, id types.ID) error {
	if err := s.store.SetAccountStatus(ctx, id, AccountBlocked); err != nil {
		return err
	}
	// A blocked courier disappears from the GEO index immediately.
	if err := s.store.RemovePosition(ctx, id); err != nil {
		s.log.Warn("courier position removal failed", "courier_id", id, "error", err)
	}
	return nil
}

// AdjustBalance credits or debits the wallet through the store's atomic
// increment. Satisfies the order module's CourierLedger.
func (s *Service) AdjustBalance(ctx context.Context, id types.ID, amount types.Money) error {
	return s.store.AdjustBalance(ctx, id, amount.Amount)
}

func (s *Service) MarkCompletedOrder(ctx context.Context, id types.ID, at time.Time) error {
	return s.store.MarkCompletedOrder(ctx, id, at)
}

func (s *Service) ApplyRating(ctx context.Context, id types.ID, stars int) error {
	return s.store.ApplyRating(ctx, id, stars)
}
