// README: Database-backed store tests (skipped unless DC_TEST_DSN is set).
package order

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"deliverycity/internal/types"
)

func TestStoreAssignCourier_Conditional(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	o := seedReadyOrder(t, store, "ORD-db-1")

	ok, err := store.AssignCourier(ctx, o.ID, "courier-a", "1111", "2222")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !ok {
		t.Fatalf("expected first claim to win")
	}

	ok, err = store.AssignCourier(ctx, o.ID, "courier-b", "3333", "4444")
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if ok {
		t.Fatalf("second claim must lose the conditional write")
	}

	got, err := store.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CourierID == nil || *got.CourierID != "courier-a" {
		t.Fatalf("courier_id = %v, want courier-a", got.CourierID)
	}
	if got.PickupCode != "1111" || got.DeliveryCode != "2222" {
		t.Fatalf("codes = %q/%q, want the winner's codes", got.PickupCode, got.DeliveryCode)
	}
}

func TestStoreAssignCourier_Race(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	o := seedReadyOrder(t, store, "ORD-db-race")

	const attempts = 8
	var wg sync.WaitGroup
	wins := make(chan types.ID, attempts)

	for i := 0; i < attempts; i++ {
		cid := types.ID(fmt.Sprintf("courier-%d", i))
		wg.Add(1)
		go func(cid types.ID) {
			defer wg.Done()
			ok, err := store.AssignCourier(ctx, o.ID, cid, "1234", "5678")
			if err != nil {
				t.Errorf("assign %s: %v", cid, err)
				return
			}
			if ok {
				wins <- cid
			}
		}(cid)
	}
	wg.Wait()
	close(wins)

	var winners []types.ID
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", len(winners))
	}

	got, err := store.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CourierID == nil || *got.CourierID != winners[0] {
		t.Fatalf("courier_id = %v, want %s", got.CourierID, winners[0])
	}
}

func TestStoreSetRating_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	o := seedReadyOrder(t, store, "ORD-db-rating")

	ok, err := store.SetRating(ctx, o.ID, Rating{StoreStars: 5, CourierStars: 5})
	if err != nil || !ok {
		t.Fatalf("first rating: ok=%v err=%v", ok, err)
	}
	ok, err = store.SetRating(ctx, o.ID, Rating{StoreStars: 1, CourierStars: 1})
	if err != nil {
		t.Fatalf("second rating: %v", err)
	}
	if ok {
		t.Fatalf("second rating write must not land")
	}
}

func seedReadyOrder(t *testing.T, store *Store, id types.ID) *Order {
	t.Helper()
	ctx := context.Background()
	o := &Order{
		ID:              id,
		RestaurantID:    "rest-1",
		RestaurantName:  "Cantina da Praça",
		CustomerID:      "cust-1",
		CustomerName:    "Maria",
		CustomerAddress: "Rua das Flores, 120",
		Items:           []Item{{ProductID: "burger", Name: "burger", UnitPrice: types.BRL(2500), Quantity: 1}},
		Subtotal:        types.BRL(2500),
		DeliveryFee:     types.BRL(500),
		PlatformFee:     types.BRL(250),
		CourierEarnings: types.BRL(500),
		Total:           types.BRL(3000),
		PaymentMethod:   PaymentPix,
		Status:          StatusReady,
		CreatedAt:       time.Now(),
	}
	if err := store.Create(ctx, o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("DC_TEST_DSN")
	if dsn == "" {
		t.Skip("DC_TEST_DSN not set; skipping DB-backed store tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE order_status_events, orders"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
