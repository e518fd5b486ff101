package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const baseCurrencyKey = "base_currency"

var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepository persists process configuration that must survive
// restarts, in particular the current base currency which the conversion
// service rewrites.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) BaseCurrency(ctx context.Context) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`select value from settings where key = $1`, baseCurrencyKey).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSettingNotFound
		}
		return "", fmt.Errorf("failed to select base currency setting: %w", err)
	}
	return value, nil
}

func (r *SettingsRepository) SetBaseCurrency(ctx context.Context, code string) error {
	const q = `
		insert into settings(key, value) values ($1, $2)
		on conflict (key) do update set value = excluded.value;
	`
	if _, err := r.pool.Exec(ctx, q, baseCurrencyKey, code); err != nil {
		return fmt.Errorf("failed to save base currency setting: %w", err)
	}
	return nil
}
