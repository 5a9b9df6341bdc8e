package courier

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"deliverycity/internal/types"
)

// setupTestDB connects to the DC_TEST_DSN database, applies the schema, and
// returns a store with no Redis client; only the profile rows are exercised.
func setupTestDB(t *testing.T) *Store {
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

	content, err := os.ReadFile(filepath.Join(moduleRoot(t), "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, stmt := range strings.Split(string(content), ";") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			t.Fatalf("apply migration: %v", err)
		}
	}

	return NewStore(db, nil)
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	t.Fatal("go.mod not found above working directory")
	return ""
}

func seedProfile(t *testing.T, store *Store) *Profile {
	t.Helper()
	p := &Profile{
		ID:        types.ID(fmt.Sprintf("courier_test_%d", time.Now().UnixNano())),
		Name:      "João",
		Email:     "joao@example.com",
		Status:    AccountApproved,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

// The rolling average lives in a single UPDATE statement so concurrent
// reviews cannot lose counts; check the arithmetic it produces.
func TestApplyRating_RollingAverage(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	p := seedProfile(t, store)

	for _, stars := range []int{5, 4, 3} {
		if err := store.ApplyRating(ctx, p.ID, stars); err != nil {
			t.Fatalf("apply rating %d: %v", stars, err)
		}
	}

	got, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RatingsCount != 3 {
		t.Errorf("ratings_count = %d, want 3", got.RatingsCount)
	}
	if math.Abs(got.AverageRating-4.0) > 1e-9 {
		t.Errorf("average_rating = %v, want 4.0", got.AverageRating)
	}
}

func TestAdjustBalance_Accumulates(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	p := seedProfile(t, store)

	for _, delta := range []int64{850, 1200, -500} {
		if err := store.AdjustBalance(ctx, p.ID, delta); err != nil {
			t.Fatalf("adjust balance %d: %v", delta, err)
		}
	}

	got, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BalanceCents != 1550 {
		t.Errorf("balance = %d, want 1550", got.BalanceCents)
	}
}

func TestSetAndReadPosition(t *testing.T) {
	redisAddr := os.Getenv("DC_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("DC_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	store := NewStore(nil, rdb) // DB nil; only the GEO index is exercised here
	ctx := context.Background()

	id := types.ID(fmt.Sprintf("courier_test_%d", time.Now().UnixNano()))
	want := types.Point{Lat: -23.5505, Lng: -46.6333}

	if err := store.SetPosition(ctx, id, want); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}

	got, err := store.Position(ctx, id)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if got == nil {
		t.Fatal("expected a position, got nil")
	}
	// Redis GEO stores on a geohash grid, so allow a small tolerance.
	if math.Abs(got.Lat-want.Lat) > 1e-4 || math.Abs(got.Lng-want.Lng) > 1e-4 {
		t.Errorf("position = %+v, want about %+v", got, want)
	}

	if err := store.RemovePosition(ctx, id); err != nil {
		t.Fatalf("RemovePosition: %v", err)
	}
	got, err = store.Position(ctx, id)
	if err != nil {
		t.Fatalf("Position after removal: %v", err)
	}
	if got != nil {
		t.Errorf("expected no position after removal, got %+v", got)
	}
}
