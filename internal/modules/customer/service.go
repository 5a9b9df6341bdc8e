// README: Address book operations for the customer profile.
package customer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deliverycity/internal/types"
)

var ErrBadRequest = errors.New("invalid address request")

// maxAddresses bounds the address book so a single profile cannot grow
// without limit.
const maxAddresses = 20

// Storage is what the service needs from persistence. *Store satisfies it.
type Storage interface {
	Create(ctx context.Context, a *Address) error
	Get(ctx context.Context, customerID, addressID types.ID) (*Address, error)
	ListByCustomer(ctx context.Context, customerID types.ID) ([]*Address, error)
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, customerID, addressID types.ID) error
}

type Service struct {
	store Storage
	log   *slog.Logger
}

func NewService(store Storage, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

type AddressCommand struct {
	Label      string
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	Coords     types.Point
}

func (c AddressCommand) validate() error {
	if c.Label == "" || c.Street == "" || c.Number == "" || c.City == "" {
		return ErrBadRequest
	}
	return nil
}

func (s *Service) AddAddress(ctx context.Context, customerID types.ID, cmd AddressCommand) (*Address, error) {
	if customerID == "" {
		return nil, ErrBadRequest
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	existing, err := s.store.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= maxAddresses {
		return nil, ErrBadRequest
	}
	a := &Address{
		ID:         types.ID(uuid.NewString()),
		CustomerID: customerID,
		Label:      cmd.Label,
		Street:     cmd.Street,
		Number:     cmd.Number,
		Complement: cmd.Complement,
		District:   cmd.District,
		City:       cmd.City,
		Coords:     cmd.Coords,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("address added", "customer_id", customerID, "address_id", a.ID)
	return a, nil
}

func (s *Service) Addresses(ctx context.Context, customerID types.ID) ([]*Address, error) {
	return s.store.ListByCustomer(ctx, customerID)
}

func (s *Service) Address(ctx context.Context, customerID, addressID types.ID) (*Address, error) {
	return s.store.Get(ctx, customerID, addressID)
}

func (s *Service) UpdateAddress(ctx context.Context, customerID, addressID types.ID, cmd AddressCommand) (*Address, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	a, err := s.store.Get(ctx, customerID, addressID)
	if err != nil {
		return nil, err
	}
	a.Label = cmd.Label
	a.Street = cmd.Street
	a.Number = cmd.Number
	a.Complement = cmd.Complement
	a.District = cmd.District
	a.City = cmd.City
	a.Coords = cmd.Coords
	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) RemoveAddress(ctx context.Context, customerID, addressID types.ID) error {
	return s.store.Delete(ctx, customerID, addressID)
}
