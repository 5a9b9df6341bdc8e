// README: Restaurant service: storefront reads, menu management, checkout
// snapshots, and AI-assisted menu copy.
package restaurant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deliverycity/internal/ai"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/types"
)

var (
	ErrBadRequest     = errors.New("bad request")
	ErrUnknownProduct = errors.New("unknown or unavailable product")
)

// fallbackDescription is served whenever the AI provider is absent or fails.
const fallbackDescription = "Delicioso e preparado diariamente com ingredientes frescos."

// Storage is what the service needs from persistence. *Store satisfies it.
type Storage interface {
	Create(ctx context.Context, r *Restaurant) error
	Get(ctx context.Context, id types.ID) (*Restaurant, error)
	ListByRating(ctx context.Context, limit int) ([]*Restaurant, error)
	ApplyRating(ctx context.Context, id types.ID, stars int) error
	SetOpen(ctx context.Context, id types.ID, open bool) error
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, restaurantID, productID types.ID) error
	ListProducts(ctx context.Context, restaurantID types.ID) ([]*Product, error)
	ProductsByIDs(ctx context.Context, restaurantID types.ID, ids []types.ID) ([]*Product, error)
}

type Service struct {
	store Storage
	desc  ai.DescriptionProvider
	log   *slog.Logger
}

// NewService wires the catalog. desc may be nil when no AI key is configured;
// descriptions then always use the static fallback.
func NewService(store Storage, desc ai.DescriptionProvider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, desc: desc, log: log}
}

type CreateCommand struct {
	OwnerID  types.ID
	Name     string
	Category string
	Phone    string
	Address  string
	Coords   types.Point
	ImageURL string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Restaurant, error) {
	if cmd.OwnerID == "" || cmd.Name == "" {
		return nil, ErrBadRequest
	}
	r := &Restaurant{
		ID:        types.ID(uuid.NewString()),
		OwnerID:   cmd.OwnerID,
		Name:      cmd.Name,
		Category:  cmd.Category,
		Phone:     cmd.Phone,
		Address:   cmd.Address,
		Coords:    cmd.Coords,
		ImageURL:  cmd.ImageURL,
		IsOpen:    true,
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Restaurant, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]*Restaurant, error) {
	return s.store.ListByRating(ctx, limit)
}

func (s *Service) SetOpen(ctx context.Context, id types.ID, open bool) error {
	return s.store.SetOpen(ctx, id, open)
}

// ApplyRating folds a delivered order's store stars into the rolling
// average.
func (s *Service) ApplyRating(ctx context.Context, id types.ID, stars int) error {
	return s.store.ApplyRating(ctx, id, stars)
}

func (s *Service) Menu(ctx context.Context, restaurantID types.ID) ([]*Product, error) {
	return s.store.ListProducts(ctx, restaurantID)
}

type ProductCommand struct {
	RestaurantID types.ID
	Name         string
	Description  string
	PriceCents   int64
	ImageURL     string
	Available    bool
}

func (s *Service) AddProduct(ctx context.Context, cmd ProductCommand) (*Product, error) {
	if cmd.RestaurantID == "" || cmd.Name == "" || cmd.PriceCents <= 0 {
		return nil, ErrBadRequest
	}
	p := &Product{
		ID:           types.ID(uuid.NewString()),
		RestaurantID: cmd.RestaurantID,
		Name:         cmd.Name,
		Description:  cmd.Description,
		PriceCents:   cmd.PriceCents,
		ImageURL:     cmd.ImageURL,
		Available:    cmd.Available,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id types.ID, cmd ProductCommand) (*Product, error) {
	if cmd.RestaurantID == "" || cmd.Name == "" || cmd.PriceCents <= 0 {
		return nil, ErrBadRequest
	}
	p := &Product{
		ID:           id,
		RestaurantID: cmd.RestaurantID,
		Name:         cmd.Name,
		Description:  cmd.Description,
		PriceCents:   cmd.PriceCents,
		ImageURL:     cmd.ImageURL,
		Available:    cmd.Available,
	}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) RemoveProduct(ctx context.Context, restaurantID, productID types.ID) error {
	return s.store.DeleteProduct(ctx, restaurantID, productID)
}

// GenerateDescription asks the AI provider for menu copy and degrades to a
// static line when the provider is missing, slow, or down. The menu editor
// always gets a usable description.
func (s *Service) GenerateDescription(ctx context.Context, productName string, ingredients []string) string {
	if s.desc == nil {
		return fallbackDescription
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	text, err := s.desc.GenerateDescription(ctx, productName, ingredients)
	if err != nil {
		s.log.Warn("menu description generation failed", "product", productName, "error", err)
		return fallbackDescription
	}
	return text
}

// Snapshot prices an order's lines from the live menu. Every requested line
// must resolve to an available product; unit prices are copied out so later
// menu edits never change an existing order.
func (s *Service) Snapshot(ctx context.Context, restaurantID types.ID, lines []order.CreateItem) (string, []order.Item, types.Money, error) {
	r, err := s.store.Get(ctx, restaurantID)
	if err != nil {
		return "", nil, types.Money{}, err
	}

	ids := make([]types.ID, len(lines))
	for i, ln := range lines {
		ids[i] = ln.ProductID
	}
	products, err := s.store.ProductsByIDs(ctx, restaurantID, ids)
	if err != nil {
		return "", nil, types.Money{}, err
	}
	byID := make(map[types.ID]*Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]order.Item, 0, len(lines))
	subtotal := types.BRL(0)
	for _, ln := range lines {
		p, ok := byID[ln.ProductID]
		if !ok || !p.Available {
			return "", nil, types.Money{}, fmt.Errorf("%w: %s", ErrUnknownProduct, ln.ProductID)
		}
		items = append(items, order.Item{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price(),
			Quantity:  ln.Quantity,
		})
		subtotal = subtotal.Add(types.BRL(p.PriceCents * int64(ln.Quantity)))
	}
	return r.Name, items, subtotal, nil
}
