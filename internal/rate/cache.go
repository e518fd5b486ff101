package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ratecache/internal/adapters"
	"ratecache/internal/domain"
	"ratecache/internal/metrics"

	"github.com/sirupsen/logrus"
)

const (
	currentKey         = "current"
	dateKeyLayout      = "2006-01-02"
	rebasePollInterval = 500 * time.Millisecond
)

// Cache resolves a currency (optionally on a date) to a rate, with the
// durable store as source of truth. A miss triggers exactly one external
// fetch per key no matter how many callers race for it: quota at the
// provider is the scarce resource this whole component protects.
type Cache struct {
	repo      adapters.RateRepository
	tasks     adapters.TaskRepository
	source    adapters.RateSource
	fast      adapters.FastCache
	locks     *LockRegistry
	base      *BaseCurrency
	supported map[string]struct{}

	ttl        time.Duration
	rebaseWait time.Duration
}

func NewCache(
	repo adapters.RateRepository,
	tasks adapters.TaskRepository,
	source adapters.RateSource,
	fast adapters.FastCache,
	locks *LockRegistry,
	base *BaseCurrency,
	supported map[string]struct{},
	ttl time.Duration,
	rebaseWait time.Duration,
) *Cache {
	return &Cache{
		repo:       repo,
		tasks:      tasks,
		source:     source,
		fast:       fast,
		locks:      locks,
		base:       base,
		supported:  supported,
		ttl:        ttl,
		rebaseWait: rebaseWait,
	}
}

// GetCurrent returns the freshest cached rate for code no older than the
// configured TTL, refreshing from the external provider on a miss.
func (c *Cache) GetCurrent(ctx context.Context, code string) (domain.Rate, error) {
	return c.get(ctx, code, nil)
}

// GetOnDate returns the cached rate for code on the given calendar date
// (UTC), refreshing from the external provider on a miss.
func (c *Cache) GetOnDate(ctx context.Context, code string, date time.Time) (domain.Rate, error) {
	return c.get(ctx, code, &date)
}

func (c *Cache) get(ctx context.Context, code string, date *time.Time) (domain.Rate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Rate{}, err
	}

	rate, err := c.getStored(ctx, code, date)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, domain.ErrRateNotFound) {
		return domain.Rate{}, err
	}

	metrics.CacheMissesTotal.Inc()
	logrus.WithFields(logrus.Fields{"code": code, "key": lockKey(date)}).
		Info("Rate not cached, refreshing")

	if err = c.secureRefresh(ctx, code, date); err != nil {
		return domain.Rate{}, err
	}

	rate, err = c.getStored(ctx, code, date)
	if err == nil {
		return rate, nil
	}
	if errors.Is(err, domain.ErrRateNotFound) {
		return domain.Rate{}, fmt.Errorf("%q on %s: %w", code, lockKey(date), domain.ErrCacheIntegrity)
	}
	return domain.Rate{}, err
}

// getStored checks the fast in-memory layer, then the durable store.
// A store hit repopulates the fast layer with its own short expiry.
func (c *Cache) getStored(ctx context.Context, code string, date *time.Time) (domain.Rate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Rate{}, err
	}

	key := fastKey(code, date)
	if rate, ok := c.fast.Get(key); ok {
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return rate, nil
	}

	var (
		rate domain.Rate
		err  error
	)
	if date == nil {
		rate, err = c.repo.GetLatest(ctx, code, time.Now().UTC().Add(-c.ttl))
	} else {
		rate, err = c.repo.GetOnDate(ctx, code, *date)
	}
	if err != nil {
		return domain.Rate{}, err
	}

	metrics.CacheHitsTotal.WithLabelValues("store").Inc()
	c.fast.Set(key, rate)
	return rate, nil
}

// secureRefresh fetches and persists the full rate set for the given key,
// guaranteeing at most one external call per key per miss episode.
func (c *Cache) secureRefresh(ctx context.Context, code string, date *time.Time) error {
	if err := c.waitOutConversion(ctx); err != nil {
		return err
	}

	key := lockKey(date)
	handle, err := c.locks.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer c.locks.Release(key, handle)

	// A refresh for this key may have finished between our miss and this
	// acquisition; fetching again would spend provider quota for nothing.
	switch _, err = c.getStored(ctx, code, date); {
	case err == nil:
		return nil
	case !errors.Is(err, domain.ErrRateNotFound):
		return err
	}

	return c.refresh(ctx, date)
}

// waitOutConversion blocks a refresh while a base currency conversion is
// active: writing rows relative to the old base mid-rebase would corrupt
// the cache. The wait is bounded by cache.rebase_wait_seconds.
func (c *Cache) waitOutConversion(ctx context.Context) error {
	active, err := c.tasks.HasActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to check conversion state: %w", err)
	}
	if !active {
		return nil
	}

	logrus.Info("Base currency conversion in flight, delaying refresh")
	deadline := time.Now().Add(c.rebaseWait)
	ticker := time.NewTicker(rebasePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		active, err = c.tasks.HasActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to check conversion state: %w", err)
		}
		if !active {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("conversion still active after %s: %w", c.rebaseWait, domain.ErrCacheUpdateTimeout)
		}
	}
}

// refresh performs the external fetch for the configured base currency and
// bulk-inserts the parsed rows.
func (c *Cache) refresh(ctx context.Context, date *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	base := c.base.Current()
	metrics.ExternalFetchesTotal.Inc()

	var (
		snapshot domain.RateSnapshot
		err      error
	)
	if date == nil {
		snapshot, err = c.source.FetchAllCurrent(ctx, base)
	} else {
		snapshot, err = c.source.FetchAllOnDate(ctx, base, *date)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch rates for base %q: %w", base, err)
	}

	rates := c.parseSnapshot(snapshot)
	if len(rates) == 0 {
		logrus.WithField("base", base).Warn("Provider returned no supported rates")
		return nil
	}

	// The fetch already spent provider quota; persist its result even if
	// the caller has gone away.
	if err = c.repo.InsertBatch(context.WithoutCancel(ctx), rates); err != nil {
		return fmt.Errorf("failed to persist fetched rates: %w", err)
	}
	return nil
}

// parseSnapshot converts provider data to rows, dropping codes outside the
// supported set. Unknown codes are expected provider noise, not errors.
func (c *Cache) parseSnapshot(snapshot domain.RateSnapshot) []domain.Rate {
	rates := make([]domain.Rate, 0, len(snapshot.Rates))
	for code, value := range snapshot.Rates {
		if _, ok := c.supported[code]; !ok {
			logrus.WithField("code", code).Debug("Skipping unsupported currency code")
			continue
		}
		rates = append(rates, domain.Rate{
			Code:     code,
			Value:    value,
			RateDate: snapshot.LastUpdatedAt,
		})
	}
	return rates
}

func fastKey(code string, date *time.Time) string {
	if date == nil {
		return code
	}
	return code + "@" + date.UTC().Format(dateKeyLayout)
}

func lockKey(date *time.Time) string {
	if date == nil {
		return currentKey
	}
	return date.UTC().Format(dateKeyLayout)
}
