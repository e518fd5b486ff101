package conversion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ratecache/internal/adapters"
	"ratecache/internal/domain"
	"ratecache/internal/metrics"
	"ratecache/internal/rate"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Service rewrites every stored rate relative to a new base currency.
// Runs are globally serialized: a rebase touches the whole rate table, and
// two interleaved rebases would compound multipliers unpredictably.
type Service struct {
	tasks     adapters.TaskRepository
	rates     adapters.RateRepository
	settings  adapters.SettingsRepository
	base      *rate.BaseCurrency
	fast      adapters.FastCache
	queue     *Queue
	supported map[string]struct{}

	sem chan struct{}
}

func NewService(
	tasks adapters.TaskRepository,
	rates adapters.RateRepository,
	settings adapters.SettingsRepository,
	base *rate.BaseCurrency,
	fast adapters.FastCache,
	queue *Queue,
	supported map[string]struct{},
) *Service {
	return &Service{
		tasks:     tasks,
		rates:     rates,
		settings:  settings,
		base:      base,
		fast:      fast,
		queue:     queue,
		supported: supported,
		sem:       make(chan struct{}, 1),
	}
}

// RequestBaseChange creates a conversion task and hands it to the worker.
// Returns the task id so callers can watch its status.
func (s *Service) RequestBaseChange(ctx context.Context, code string) (uuid.UUID, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := s.supported[code]; !ok {
		return uuid.Nil, fmt.Errorf("%q: %w", code, domain.ErrUnsupportedCurrency)
	}

	task := domain.ConversionTask{
		ID:              uuid.New(),
		Status:          domain.ConversionCreated,
		NewBaseCurrency: code,
		StartTime:       time.Now().UTC(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return uuid.Nil, err
	}
	s.queue.Enqueue(&task)

	logrus.WithFields(logrus.Fields{"task_id": task.ID, "new_base": code}).
		Info("Base currency change requested")
	return task.ID, nil
}

// Run executes the conversion task. A missing task is a no-op. The rebase
// of all historical dates happens inside one transaction: either every
// date is rewritten or none is.
func (s *Service) Run(ctx context.Context, taskID uuid.UUID) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, domain.ErrTaskNotFound) {
		logrus.WithField("task_id", taskID).Warn("Conversion task vanished, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	oldBase := s.base.Current()
	newBase := task.NewBaseCurrency

	if newBase == oldBase {
		logrus.WithField("task_id", task.ID).Info("Base currency already set, canceling task")
		return s.finish(ctx, task, domain.ConversionCanceled)
	}

	task.Status = domain.ConversionProcessing
	if err = s.tasks.Update(ctx, task); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"task_id": task.ID, "old_base": oldBase, "new_base": newBase}).
		Info("Starting base currency conversion")

	if err = s.rates.InTx(ctx, func(tx adapters.RateTx) error {
		return s.rebase(ctx, tx, oldBase, newBase)
	}); err != nil {
		// The transaction rolled back; record the failure on the task even
		// if the caller's ctx is already gone.
		if uerr := s.finish(context.WithoutCancel(ctx), task, domain.ConversionError); uerr != nil {
			logrus.WithError(uerr).WithField("task_id", task.ID).
				Error("Failed to mark conversion task as errored")
		}
		return fmt.Errorf("conversion %s -> %s failed: %w", oldBase, newBase, err)
	}

	if err = s.finish(ctx, task, domain.ConversionSuccess); err != nil {
		return err
	}
	if err = s.settings.SetBaseCurrency(ctx, newBase); err != nil {
		return fmt.Errorf("rates rebased but base currency setting not saved: %w", err)
	}
	s.base.Set(newBase)
	// Everything in the fast layer predates the rebase.
	s.fast.Clear()

	logrus.WithField("task_id", task.ID).Info("Base currency conversion finished")
	return nil
}

// rebase rewrites all rows of every stored date. The multiplier is computed
// and applied in-process with decimal arithmetic: NUMERIC in the store
// carries different precision than the application type, and delegating the
// multiplication to SQL can overflow or truncate.
func (s *Service) rebase(ctx context.Context, tx adapters.RateTx, oldBase, newBase string) error {
	dates, err := tx.DistinctDates(ctx)
	if err != nil {
		return err
	}

	one := decimal.New(1, 0)
	for _, date := range dates {
		if err = ctx.Err(); err != nil {
			return err
		}

		rows, err := tx.ListOnDate(ctx, date)
		if err != nil {
			return err
		}

		var newBaseRow *domain.Rate
		foundOldBase := false
		for i := range rows {
			switch rows[i].Code {
			case oldBase:
				foundOldBase = true
			case newBase:
				newBaseRow = &rows[i]
			}
		}
		if !foundOldBase {
			return fmt.Errorf("%q on %s: %w", oldBase, date.Format(dateLayout), domain.ErrRebaseIntegrity)
		}
		if newBaseRow == nil {
			return fmt.Errorf("%q on %s: %w", newBase, date.Format(dateLayout), domain.ErrRebaseNotFound)
		}
		if newBaseRow.Value.IsZero() {
			// decimal.Div panics on zero; a zero stored rate is corrupt data.
			return fmt.Errorf("%q on %s has zero rate: %w", newBase, date.Format(dateLayout), domain.ErrRebaseIntegrity)
		}

		multiplier := one.Div(newBaseRow.Value)
		for i := range rows {
			rows[i].Value = rows[i].Value.Mul(multiplier)
		}

		if err = tx.UpdateValues(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) finish(ctx context.Context, task domain.ConversionTask, status domain.ConversionStatus) error {
	now := time.Now().UTC()
	task.Status = status
	task.EndTime = &now
	if err := s.tasks.Update(ctx, task); err != nil {
		return err
	}
	metrics.ConversionRunsTotal.WithLabelValues(status.String()).Inc()
	return nil
}

const dateLayout = "2006-01-02"
