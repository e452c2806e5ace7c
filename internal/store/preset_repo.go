package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// Open connects to Postgres through the pgx stdlib driver and checks the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// PresetRepo stores named camera systems.
type PresetRepo struct{ DB *sql.DB }

func NewPresetRepo(db *sql.DB) *PresetRepo { return &PresetRepo{DB: db} }

const schema = `
create table if not exists camera_presets (
	name             text primary key,
	sensor_width_mm  double precision not null check (sensor_width_mm > 0),
	sensor_height_mm double precision not null check (sensor_height_mm > 0),
	pixel_width      integer not null check (pixel_width > 0),
	pixel_height     integer not null check (pixel_height > 0),
	focal_length_mm  double precision not null check (focal_length_mm > 0),
	updated_at       timestamptz not null default now()
)`

// EnsureSchema creates the presets table if needed.
func (r *PresetRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// List returns all presets ordered by name.
func (r *PresetRepo) List(ctx context.Context) ([]optics.CameraSystem, error) {
	const q = `select name, sensor_width_mm, sensor_height_mm, pixel_width, pixel_height, focal_length_mm
	           from camera_presets
	           order by name`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []optics.CameraSystem
	for rows.Next() {
		var c optics.CameraSystem
		if err := rows.Scan(&c.Name, &c.SensorWidthMm, &c.SensorHeightMm, &c.PixelWidth, &c.PixelHeight, &c.FocalLengthMm); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns the preset called name, or sql.ErrNoRows.
func (r *PresetRepo) Get(ctx context.Context, name string) (optics.CameraSystem, error) {
	const q = `select name, sensor_width_mm, sensor_height_mm, pixel_width, pixel_height, focal_length_mm
	           from camera_presets
	           where name=$1`
	var c optics.CameraSystem
	err := r.DB.QueryRowContext(ctx, q, name).
		Scan(&c.Name, &c.SensorWidthMm, &c.SensorHeightMm, &c.PixelWidth, &c.PixelHeight, &c.FocalLengthMm)
	return c, err
}

const upsertQuery = `
insert into camera_presets(name, sensor_width_mm, sensor_height_mm, pixel_width, pixel_height, focal_length_mm)
values ($1,$2,$3,$4,$5,$6)
on conflict (name)
do update set sensor_width_mm=excluded.sensor_width_mm,
              sensor_height_mm=excluded.sensor_height_mm,
              pixel_width=excluded.pixel_width,
              pixel_height=excluded.pixel_height,
              focal_length_mm=excluded.focal_length_mm,
              updated_at=now()`

// Upsert saves or replaces the preset with the same name.
func (r *PresetRepo) Upsert(ctx context.Context, c optics.CameraSystem) error {
	if c.Name == "" {
		return fmt.Errorf("preset name is required")
	}
	_, err := r.DB.ExecContext(ctx, upsertQuery,
		c.Name, c.SensorWidthMm, c.SensorHeightMm, c.PixelWidth, c.PixelHeight, c.FocalLengthMm)
	return err
}

// Seed upserts every camera in one transaction.
func (r *PresetRepo) Seed(ctx context.Context, cams []optics.CameraSystem) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range cams {
		if c.Name == "" {
			return fmt.Errorf("preset name is required")
		}
		if _, err := tx.ExecContext(ctx, upsertQuery,
			c.Name, c.SensorWidthMm, c.SensorHeightMm, c.PixelWidth, c.PixelHeight, c.FocalLengthMm); err != nil {
			return fmt.Errorf("seed %q: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

// Delete removes the preset called name. Deleting a missing preset is not an error.
func (r *PresetRepo) Delete(ctx context.Context, name string) error {
	_, err := r.DB.ExecContext(ctx, `delete from camera_presets where name=$1`, name)
	return err
}
