package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"donationroute/internal/model"
)

func TestUpsertStops_CountsCreatedAndUpdated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	exp := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO stops`).
		WithArgs("t1", "s1", "Bakery", 52.5, 13.4, 4.0, "food", "active", exp).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO stops`).
		WithArgs("t1", "s2", nil, nil, nil, 1.0, nil, "reserved", nil).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectCommit()

	p := NewPostgresDB(db)
	created, updated, err := p.UpsertStops(context.Background(), "t1", []model.Stop{
		{ID: "s1", Title: "Bakery", Location: &model.GeoPoint{Lat: 52.5, Lng: 13.4}, Quantity: 4, Category: "food", Status: model.StatusActive, ExpiresAt: &exp},
		{ID: "s2", Quantity: 1, Status: model.StatusReserved},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 || updated != 1 {
		t.Fatalf("got created=%d updated=%d", created, updated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpsertStops_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO stops`).WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	_, _, err = NewPostgresDB(db).UpsertStops(context.Background(), "t1", []model.Stop{{ID: "s1", Status: model.StatusActive}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListStops_ScansNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	exp := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "title", "lat", "lng", "quantity", "category", "status", "expires_at"}).
		AddRow("s1", "Bakery", 52.5, 13.4, 4.0, "food", "active", exp).
		AddRow("s2", nil, nil, nil, 1.0, nil, "active", nil)
	mock.ExpectQuery(`SELECT id, title, lat, lng, quantity, category, status, expires_at FROM stops`).
		WithArgs("t1", "active").
		WillReturnRows(rows)

	got, err := NewPostgresDB(db).ListStops(context.Background(), "t1", model.StatusActive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d stops", len(got))
	}
	if got[0].Location == nil || got[0].Location.Lat != 52.5 || got[0].ExpiresAt == nil || !got[0].ExpiresAt.Equal(exp) {
		t.Fatalf("bad first stop: %+v", got[0])
	}
	if got[1].Location != nil || got[1].ExpiresAt != nil || got[1].Title != "" {
		t.Fatalf("bad second stop: %+v", got[1])
	}
}

func TestPlanMetrics_SaveAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`INSERT INTO plan_metrics`).
		WithArgs(sqlmock.AnyArg(), "t1", "2025-03-01", "genetic", 6, 12.5, 3.2, 6.25).
		WillReturnResult(sqlmock.NewResult(1, 1))
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT strategy, stops, distance_km, duration_ms, cost, created_at FROM plan_metrics`).
		WithArgs("t1", "2025-03-01", "genetic").
		WillReturnRows(sqlmock.NewRows([]string{"strategy", "stops", "distance_km", "duration_ms", "cost", "created_at"}).
			AddRow("genetic", 6, 12.5, 3.2, 6.25, created))

	p := NewPostgresDB(db)
	pm := model.PlanMetrics{Strategy: "genetic", Stops: 6, DistanceKm: 12.5, DurationMs: 3.2, Cost: 6.25}
	if err := p.SavePlanMetrics(context.Background(), "t1", "2025-03-01", pm); err != nil {
		t.Fatalf("save: %v", err)
	}
	items, err := p.ListPlanMetrics(context.Background(), "t1", "2025-03-01", "genetic")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Stops != 6 || !items[0].CreatedAt.Equal(created) {
		t.Fatalf("got %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOptimizerConfig_MissingIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT config FROM optimizer_config`).WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"config"}))
	mock.ExpectExec(`INSERT INTO optimizer_config`).WithArgs("t1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT config FROM optimizer_config`).WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"config"}).AddRow([]byte(`{"vehicle":"truck","maxStops":12}`)))

	p := NewPostgresDB(db)
	cfg, err := p.GetOptimizerConfig(context.Background(), "t1")
	if err != nil || cfg != nil {
		t.Fatalf("want nil config, got %v %v", cfg, err)
	}
	if err := p.SaveOptimizerConfig(context.Background(), "t1", map[string]any{"vehicle": "truck", "maxStops": 12}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg, err = p.GetOptimizerConfig(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg["vehicle"] != "truck" || cfg["maxStops"].(float64) != 12 {
		t.Fatalf("got %v", cfg)
	}
}

func TestMigrateDir_AppliesInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "002_b.sql"), []byte("CREATE TABLE b (id int);"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "001_a.sql"), []byte("CREATE TABLE a (id int);"), 0o600); err != nil {
		t.Fatal(err)
	}
	mock.ExpectExec(`CREATE TABLE a`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE b`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewPostgresDB(db).MigrateDir(dir); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRepoMigrationsParse(t *testing.T) {
	files, err := filepath.Glob("../../db/migrations/*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("no migrations found: %v", err)
	}
}
