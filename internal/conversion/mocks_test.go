package conversion

import (
	"context"
	"sync"
	"time"

	"ratecache/internal/adapters"
	"ratecache/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTaskRepository struct{ mock.Mock }

func (m *MockTaskRepository) Create(ctx context.Context, task domain.ConversionTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ConversionTask, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(domain.ConversionTask)
	return task, args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, task domain.ConversionTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindActive(ctx context.Context) ([]domain.ConversionTask, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]domain.ConversionTask)
	return tasks, args.Error(1)
}

func (m *MockTaskRepository) HasActive(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// MockRateRepository implements InTx by invoking fn with the RateTx provided
// via Return(tx, err); a nil tx skips fn, which models a failed Begin.
type MockRateRepository struct{ mock.Mock }

func (m *MockRateRepository) GetLatest(ctx context.Context, code string, minDate time.Time) (domain.Rate, error) {
	args := m.Called(ctx, code, minDate)
	r, _ := args.Get(0).(domain.Rate)
	return r, args.Error(1)
}

func (m *MockRateRepository) GetOnDate(ctx context.Context, code string, date time.Time) (domain.Rate, error) {
	args := m.Called(ctx, code, date)
	r, _ := args.Get(0).(domain.Rate)
	return r, args.Error(1)
}

func (m *MockRateRepository) InsertBatch(ctx context.Context, rates []domain.Rate) error {
	args := m.Called(ctx, rates)
	return args.Error(0)
}

func (m *MockRateRepository) InTx(ctx context.Context, fn func(tx adapters.RateTx) error) error {
	args := m.Called(ctx, fn)
	if tx, ok := args.Get(0).(adapters.RateTx); ok {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return args.Error(1)
}

type MockRateTx struct{ mock.Mock }

func (m *MockRateTx) DistinctDates(ctx context.Context) ([]time.Time, error) {
	args := m.Called(ctx)
	dates, _ := args.Get(0).([]time.Time)
	return dates, args.Error(1)
}

func (m *MockRateTx) ListOnDate(ctx context.Context, date time.Time) ([]domain.Rate, error) {
	args := m.Called(ctx, date)
	rows, _ := args.Get(0).([]domain.Rate)
	return rows, args.Error(1)
}

func (m *MockRateTx) UpdateValues(ctx context.Context, rates []domain.Rate) error {
	args := m.Called(ctx, rates)
	return args.Error(0)
}

type MockSettingsRepository struct{ mock.Mock }

func (m *MockSettingsRepository) BaseCurrency(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsRepository) SetBaseCurrency(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// stubFastCache records whether Clear was called.
type stubFastCache struct {
	mu      sync.Mutex
	cleared bool
}

func (s *stubFastCache) Get(string) (domain.Rate, bool) { return domain.Rate{}, false }
func (s *stubFastCache) Set(string, domain.Rate)        {}

func (s *stubFastCache) Clear() {
	s.mu.Lock()
	s.cleared = true
	s.mu.Unlock()
}

func (s *stubFastCache) Close() {}

func (s *stubFastCache) wasCleared() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}
