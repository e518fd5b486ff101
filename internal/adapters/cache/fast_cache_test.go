package cache

import (
	"testing"
	"time"

	"ratecache/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRateCache_SetAndGet(t *testing.T) {
	c, err := NewRateCache(128, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	rate := domain.Rate{
		Code:     "EUR",
		Value:    decimal.RequireFromString("0.9"),
		RateDate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	c.Set("EUR", rate)
	c.cache.Wait()

	got, ok := c.Get("EUR")
	require.True(t, ok)
	require.Equal(t, rate.Code, got.Code)
	require.True(t, rate.Value.Equal(got.Value))
}

func TestRateCache_GetMissWhenEmpty(t *testing.T) {
	c, err := NewRateCache(64, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("EUR@2024-05-01")
	require.False(t, ok)
}

func TestRateCache_ClearDropsEverything(t *testing.T) {
	c, err := NewRateCache(256, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	c.Set("EUR", domain.Rate{Code: "EUR"})
	c.Set("RUB", domain.Rate{Code: "RUB"})
	c.cache.Wait()

	c.Clear()

	_, ok := c.Get("EUR")
	require.False(t, ok)
	_, ok = c.Get("RUB")
	require.False(t, ok)
}

func TestRateCache_EntryExpires(t *testing.T) {
	c, err := NewRateCache(64, 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	c.Set("USD", domain.Rate{Code: "USD"})
	c.cache.Wait()

	require.Eventually(t, func() bool {
		_, ok := c.Get("USD")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}
