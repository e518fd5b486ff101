package domain

import "errors"

var (
	ErrRateNotFound        = errors.New("rate not found")
	ErrTaskNotFound        = errors.New("conversion task not found")
	ErrUnsupportedCurrency = errors.New("currency not supported")

	// ErrQuotaExhausted: the external provider reports no remaining request
	// quota. Surfaced as a rate-limited failure, never retried by the cache.
	ErrQuotaExhausted = errors.New("external api quota exhausted")

	// ErrCacheIntegrity: a refresh completed but the expected row is still
	// absent. Indicates a persistence or parsing bug, not a transient state.
	ErrCacheIntegrity = errors.New("rate missing from cache after refresh")

	// ErrCacheUpdateTimeout: a refresh could not start because a base
	// currency conversion did not finish within the configured wait.
	ErrCacheUpdateTimeout = errors.New("cache refresh timed out waiting for conversion")

	// ErrRebaseIntegrity: the old base currency has no stored rate on some
	// date, so the multiplier chain is broken. The cache needs manual repair.
	ErrRebaseIntegrity = errors.New("old base currency rate missing, cache is inconsistent")

	// ErrRebaseNotFound: the new base currency has no stored rate on some
	// date. Recoverable by retrying once that date is fetched.
	ErrRebaseNotFound = errors.New("new base currency rate missing")
)
