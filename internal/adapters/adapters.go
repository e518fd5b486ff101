package adapters

import (
	"context"
	"time"

	"ratecache/internal/domain"

	"github.com/google/uuid"
)

// RateSource is the rate-limited external provider.
type RateSource interface {
	FetchAllCurrent(ctx context.Context, base string) (domain.RateSnapshot, error)
	FetchAllOnDate(ctx context.Context, base string, date time.Time) (domain.RateSnapshot, error)
	QuotaRemaining(ctx context.Context) (bool, error)
}

// RateRepository is the durable rate store.
type RateRepository interface {
	// GetLatest returns the freshest rate for code with RateDate >= minDate.
	GetLatest(ctx context.Context, code string, minDate time.Time) (domain.Rate, error)
	// GetOnDate returns the freshest rate for code within the calendar day of date (UTC).
	GetOnDate(ctx context.Context, code string, date time.Time) (domain.Rate, error)
	// InsertBatch writes rates in one batch; rows conflicting on
	// (code, rate_date) are skipped, not errors.
	InsertBatch(ctx context.Context, rates []domain.Rate) error
	// InTx runs fn inside a single transaction and commits iff fn returns nil.
	InTx(ctx context.Context, fn func(tx RateTx) error) error
}

// RateTx is the transactional view of the rate store used by the rebase.
type RateTx interface {
	DistinctDates(ctx context.Context) ([]time.Time, error)
	ListOnDate(ctx context.Context, date time.Time) ([]domain.Rate, error)
	UpdateValues(ctx context.Context, rates []domain.Rate) error
}

type TaskRepository interface {
	Create(ctx context.Context, task domain.ConversionTask) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.ConversionTask, error)
	Update(ctx context.Context, task domain.ConversionTask) error
	// FindActive returns tasks in created or processing status.
	FindActive(ctx context.Context) ([]domain.ConversionTask, error)
	HasActive(ctx context.Context) (bool, error)
}

type SettingsRepository interface {
	BaseCurrency(ctx context.Context) (string, error)
	SetBaseCurrency(ctx context.Context, code string) error
}

// FastCache is the short-lived in-memory layer in front of the rate store.
type FastCache interface {
	Get(key string) (domain.Rate, bool)
	Set(key string, rate domain.Rate)
	Clear()
	Close()
}
