package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	jsoniter "github.com/json-iterator/go"

	"spin-wheel-service/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WheelLoader loads wheel JSONB from Postgres.
type WheelLoader struct {
	pool *pgxpool.Pool
}

func NewWheelLoader(pool *pgxpool.Pool) *WheelLoader {
	return &WheelLoader{pool: pool}
}

func (l *WheelLoader) LoadWheel(ctx context.Context, wheelID string) (domain.Wheel, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM wheels WHERE id=$1`, wheelID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Wheel{}, fmt.Errorf("load wheel %q: %w", wheelID, domain.ErrWheelNotFound)
	}
	if err != nil {
		return domain.Wheel{}, fmt.Errorf("load wheel: %w", err)
	}
	var w domain.Wheel
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Wheel{}, fmt.Errorf("unmarshal wheel: %w", err)
	}
	if w.ID == "" {
		w.ID = wheelID
	}
	return w, nil
}

// SaveWheel upserts a wheel definition.
func (l *WheelLoader) SaveWheel(ctx context.Context, w domain.Wheel) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal wheel: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO wheels (id, name, variant, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, variant = EXCLUDED.variant, data = EXCLUDED.data, updated_at = now()`,
		w.ID, w.Name, string(w.Variant), string(raw))
	if err != nil {
		return fmt.Errorf("save wheel: %w", err)
	}
	return nil
}
