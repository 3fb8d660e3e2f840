package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openconf/confq/internal/filter"
	"github.com/openconf/confq/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&models.Conference{}, &models.Registration{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func seeded(t *testing.T) (*Repository[models.Conference], context.Context) {
	t.Helper()
	r := New[models.Conference](testDB(t), zerolog.Nop())
	ctx := context.Background()
	lyon := "Lyon"
	samples := []models.Conference{
		{Name: "GopherFest", City: &lyon, Status: models.StatusPublished,
			StartsAt: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
			EndsAt:   time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
			Capacity: 400, Fee: decimal.NewFromInt(199)},
		{Name: "DataDays", Status: models.StatusPublished,
			StartsAt: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
			EndsAt:   time.Date(2026, 5, 3, 18, 0, 0, 0, time.UTC),
			Capacity: 250, Fee: decimal.NewFromInt(89)},
		{Name: "CloudSummit", Status: models.StatusDraft,
			StartsAt: time.Date(2026, 9, 20, 9, 0, 0, 0, time.UTC),
			EndsAt:   time.Date(2026, 9, 22, 18, 0, 0, 0, time.UTC),
			Capacity: 1200, Fee: decimal.NewFromInt(450)},
	}
	for i := range samples {
		if err := r.Create(ctx, &samples[i]); err != nil {
			t.Fatal(err)
		}
	}
	return r, ctx
}

func TestCreateValidates(t *testing.T) {
	r := New[models.Conference](testDB(t), zerolog.Nop())
	err := r.Create(context.Background(), &models.Conference{Name: "ab"})
	if err == nil {
		t.Fatal("short name must fail validation")
	}
	n, _ := r.Count(context.Background(), nil)
	if n != 0 {
		t.Fatal("invalid entity must not be persisted")
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	r, ctx := seeded(t)
	c, err := r.FindOne(ctx, filter.Column("name").Eq("GopherFest"))
	if err != nil {
		t.Fatal(err)
	}
	if c.ConferenceID == 0 {
		t.Fatal("primary key not assigned")
	}
	fresh := models.Conference{Name: "Fresh", StartsAt: time.Now(), EndsAt: time.Now().Add(time.Hour)}
	if err := r.Create(ctx, &fresh); err != nil {
		t.Fatal(err)
	}
	if fresh.Status != models.StatusDraft {
		t.Fatalf("BeforeCreate must default status to draft, got %d", fresh.Status)
	}
}

func TestFindOneNotFoundPassesThrough(t *testing.T) {
	r, ctx := seeded(t)
	_, err := r.FindOne(ctx, filter.Column("name").Eq("Nope"))
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("store error must surface unchanged, got %v", err)
	}
}

func TestCountAndExists(t *testing.T) {
	r, ctx := seeded(t)
	n, err := r.Count(ctx, filter.Column("status").Eq(models.StatusPublished))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 published, got %d", n)
	}
	ok, err := r.Exists(ctx, filter.Column("capacity").Gt(1000))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("CloudSummit has capacity 1200")
	}
	ok, err = r.Exists(ctx, filter.Column("capacity").Gt(100000))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("no conference that large")
	}
}

func TestUpdate(t *testing.T) {
	r, ctx := seeded(t)
	c, err := r.FindOne(ctx, filter.Column("name").Eq("DataDays"))
	if err != nil {
		t.Fatal(err)
	}
	c.Capacity = 300
	if err := r.Update(ctx, c); err != nil {
		t.Fatal(err)
	}
	again, err := r.FindByID(ctx, c.ConferenceID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Capacity != 300 {
		t.Fatalf("update not persisted, capacity %d", again.Capacity)
	}
}

func TestDeleteWhere(t *testing.T) {
	r, ctx := seeded(t)
	rows, err := r.DeleteWhere(ctx, filter.Column("status").Eq(models.StatusDraft))
	if err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row deleted, got %d", rows)
	}
	n, _ := r.Count(ctx, nil)
	if n != 2 {
		t.Fatalf("expected 2 remaining, got %d", n)
	}
	if _, err := r.DeleteWhere(ctx, nil); err == nil {
		t.Fatal("nil condition must be rejected")
	}
}

func TestFindAllStructured(t *testing.T) {
	r, ctx := seeded(t)
	out, err := r.FindAll(ctx, Spec{
		Filter: filter.Column("status").Eq(models.StatusPublished),
		Order:  []filter.Order{{Column: "capacity", Desc: true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Name != "GopherFest" {
		t.Fatalf("unexpected result %v", out)
	}
}

func TestFindAllDynamic(t *testing.T) {
	r, ctx := seeded(t)
	out, err := r.FindAll(ctx, Spec{
		Query:       "Status == 2 && Fee < {0}",
		QueryValues: []any{int64(100)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Name != "DataDays" {
		t.Fatalf("unexpected result %v", out)
	}
}

func TestFindAllDynamicOrderingAndPaging(t *testing.T) {
	r, ctx := seeded(t)
	out, err := r.FindAll(ctx, Spec{
		OrderText: "Capacity desc",
		Page:      2,
		PageSize:  2,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Capacities 1200, 400 | 250 — page 2 of size 2 holds the smallest.
	if len(out) != 1 || out[0].Name != "DataDays" {
		t.Fatalf("unexpected page %v", out)
	}
}

func TestFindAllBadQuerySurfacesParseError(t *testing.T) {
	r, ctx := seeded(t)
	_, err := r.FindAll(ctx, Spec{Query: "Status <"})
	if err == nil {
		t.Fatal("malformed query must fail")
	}
}
