package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ratecache/internal/adapters"
	"ratecache/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RateRepository struct {
	pool *pgxpool.Pool
}

func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

func (r *RateRepository) GetLatest(ctx context.Context, code string, minDate time.Time) (domain.Rate, error) {
	const q = `
		select id, currency_code, value, rate_date
		from rates
		where currency_code = $1 and rate_date >= $2
		order by rate_date desc
		limit 1;
	`
	return r.queryOne(ctx, q, code, minDate)
}

func (r *RateRepository) GetOnDate(ctx context.Context, code string, date time.Time) (domain.Rate, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	const q = `
		select id, currency_code, value, rate_date
		from rates
		where currency_code = $1 and rate_date >= $2 and rate_date < $3
		order by rate_date desc
		limit 1;
	`
	return r.queryOne(ctx, q, code, dayStart, dayEnd)
}

func (r *RateRepository) queryOne(ctx context.Context, q string, args ...any) (domain.Rate, error) {
	var rate domain.Rate
	if err := r.pool.QueryRow(ctx, q, args...).Scan(
		&rate.ID,
		&rate.Code,
		&rate.Value,
		&rate.RateDate,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rate{}, domain.ErrRateNotFound
		}
		return domain.Rate{}, fmt.Errorf("failed to select rate: %w", err)
	}
	return rate, nil
}

// InsertBatch writes all rates in one batch. Conflicts on
// (currency_code, rate_date) are silently skipped so a racing refresh can
// never violate the unique constraint.
func (r *RateRepository) InsertBatch(ctx context.Context, rates []domain.Rate) error {
	if len(rates) == 0 {
		return nil
	}

	const q = `
		insert into rates(currency_code, value, rate_date)
		values ($1, $2, $3)
		on conflict (currency_code, rate_date) do nothing;
	`

	batch := &pgx.Batch{}
	for _, rate := range rates {
		batch.Queue(q, rate.Code, rate.Value, rate.RateDate)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range rates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert rates batch: %w", err)
		}
	}
	return nil
}

func (r *RateRepository) InTx(ctx context.Context, fn func(tx adapters.RateTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = fn(&rateTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rateTx struct {
	tx pgx.Tx
}

func (t *rateTx) DistinctDates(ctx context.Context) ([]time.Time, error) {
	rows, err := t.tx.Query(ctx, `select distinct rate_date from rates order by rate_date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct rate dates: %w", err)
	}
	defer rows.Close()

	dates := make([]time.Time, 0, 64)
	for rows.Next() {
		var d time.Time
		if err = rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan rate date: %w", err)
		}
		dates = append(dates, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate dates: %w", err)
	}
	return dates, nil
}

func (t *rateTx) ListOnDate(ctx context.Context, date time.Time) ([]domain.Rate, error) {
	rows, err := t.tx.Query(ctx,
		`select id, currency_code, value, rate_date from rates where rate_date = $1`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates on date: %w", err)
	}
	defer rows.Close()

	rates := make([]domain.Rate, 0, 64)
	for rows.Next() {
		var rate domain.Rate
		if err = rows.Scan(&rate.ID, &rate.Code, &rate.Value, &rate.RateDate); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rates = append(rates, rate)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rates: %w", err)
	}
	return rates, nil
}

func (t *rateTx) UpdateValues(ctx context.Context, rates []domain.Rate) error {
	if len(rates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rate := range rates {
		batch.Queue(`update rates set value = $1 where id = $2`, rate.Value, rate.ID)
	}

	results := t.tx.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range rates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to update rate values: %w", err)
		}
	}
	return nil
}
