package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"donationroute/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresDB wraps an existing handle.
func NewPostgresDB(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir in lexical order. Scripts must be idempotent.
func (p *Postgres) MigrateDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

// UpsertStops inserts or replaces catalog stops keyed by (tenant_id, id).
func (p *Postgres) UpsertStops(ctx context.Context, tenantID string, stops []model.Stop) (int, int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	created, updated := 0, 0
	for _, s := range stops {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		lat, lng := locArgs(s.Location)
		var inserted bool
		err := tx.QueryRowContext(ctx, `INSERT INTO stops (tenant_id, id, title, lat, lng, quantity, category, status, expires_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
            ON CONFLICT (tenant_id, id) DO UPDATE SET
              title=$3, lat=$4, lng=$5, quantity=$6, category=$7, status=$8, expires_at=$9, updated_at=now()
            RETURNING (xmax = 0)`,
			tenantID, s.ID, nullIfEmpty(s.Title), lat, lng, s.Quantity, nullIfEmpty(s.Category), string(s.Status), timeArg(s.ExpiresAt),
		).Scan(&inserted)
		if err != nil {
			return 0, 0, fmt.Errorf("upsert stop %s: %w", s.ID, err)
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (p *Postgres) ListStops(ctx context.Context, tenantID string, status model.StopStatus) ([]model.Stop, error) {
	q := `SELECT id, title, lat, lng, quantity, category, status, expires_at FROM stops WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != "" {
		q += ` AND status=$2`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at, id`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Stop{}
	for rows.Next() {
		var s model.Stop
		var title, category sql.NullString
		var lat, lng sql.NullFloat64
		var status string
		var exp sql.NullTime
		if err := rows.Scan(&s.ID, &title, &lat, &lng, &s.Quantity, &category, &status, &exp); err != nil {
			return nil, err
		}
		s.Title = title.String
		s.Category = category.String
		s.Status = model.StopStatus(status)
		if lat.Valid && lng.Valid {
			s.Location = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
		}
		if exp.Valid {
			t := exp.Time
			s.ExpiresAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) SavePlanMetrics(ctx context.Context, tenantID, planDate string, m model.PlanMetrics) error {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `INSERT INTO plan_metrics (id, tenant_id, plan_date, strategy, stops, distance_km, duration_ms, cost)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (tenant_id, plan_date, strategy) DO UPDATE SET
          stops=$5, distance_km=$6, duration_ms=$7, cost=$8, created_at=now()`,
		id, tenantID, planDate, m.Strategy, m.Stops, m.DistanceKm, m.DurationMs, m.Cost,
	)
	return err
}

func (p *Postgres) ListPlanMetrics(ctx context.Context, tenantID, planDate, strategy string) ([]model.PlanMetrics, error) {
	base := `SELECT strategy, stops, distance_km, duration_ms, cost, created_at FROM plan_metrics WHERE tenant_id=$1 AND plan_date=$2`
	args := []any{tenantID, planDate}
	if strategy != "" {
		base += ` AND strategy=$3`
		args = append(args, strategy)
	}
	rows, err := p.db.QueryContext(ctx, base+` ORDER BY strategy`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PlanMetrics{}
	for rows.Next() {
		var m model.PlanMetrics
		if err := rows.Scan(&m.Strategy, &m.Stops, &m.DistanceKm, &m.DurationMs, &m.Cost, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	row := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE tenant_id=$1`, tenantID)
	var js []byte
	if err := row.Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO optimizer_config (tenant_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, js)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func locArgs(p *model.GeoPoint) (any, any) {
	if p == nil {
		return nil, nil
	}
	return p.Lat, p.Lng
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
