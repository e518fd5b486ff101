package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ratecache/internal/domain"

	"github.com/shopspring/decimal"
)

// CurrencyAPIClient talks to the external rate provider. The provider is
// rate limited: every /latest and /historical call spends one request of a
// monthly quota, which is why the cache in front of this client exists.
type CurrencyAPIClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewCurrencyAPIClient(httpClient *http.Client, baseURL, apiKey string) *CurrencyAPIClient {
	return &CurrencyAPIClient{http: httpClient, baseURL: baseURL, apiKey: apiKey}
}

type ratesResponse struct {
	Meta struct {
		LastUpdatedAt time.Time `json:"last_updated_at"`
	} `json:"meta"`
	Data map[string]struct {
		Code  string          `json:"code"`
		Value decimal.Decimal `json:"value"`
	} `json:"data"`
}

type statusResponse struct {
	Quotas struct {
		Month struct {
			Total     int64 `json:"total"`
			Used      int64 `json:"used"`
			Remaining int64 `json:"remaining"`
		} `json:"month"`
	} `json:"quotas"`
}

func (c *CurrencyAPIClient) FetchAllCurrent(ctx context.Context, base string) (domain.RateSnapshot, error) {
	return c.fetchRates(ctx, "/latest", url.Values{"base_currency": {base}})
}

func (c *CurrencyAPIClient) FetchAllOnDate(ctx context.Context, base string, date time.Time) (domain.RateSnapshot, error) {
	return c.fetchRates(ctx, "/historical", url.Values{
		"base_currency": {base},
		"date":          {date.Format("2006-01-02")},
	})
}

func (c *CurrencyAPIClient) fetchRates(ctx context.Context, path string, query url.Values) (domain.RateSnapshot, error) {
	var body ratesResponse
	if err := c.get(ctx, path, query, &body); err != nil {
		return domain.RateSnapshot{}, err
	}

	snapshot := domain.RateSnapshot{
		LastUpdatedAt: body.Meta.LastUpdatedAt,
		Rates:         make(map[string]decimal.Decimal, len(body.Data)),
	}
	for code, entry := range body.Data {
		snapshot.Rates[code] = entry.Value
	}
	return snapshot, nil
}

func (c *CurrencyAPIClient) QuotaRemaining(ctx context.Context) (bool, error) {
	var body statusResponse
	if err := c.get(ctx, "/status", nil, &body); err != nil {
		return false, err
	}
	return body.Quotas.Month.Remaining > 0, nil
}

func (c *CurrencyAPIClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse provider URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %q: %w", path, err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request for %q: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.ErrQuotaExhausted
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d for %q: %s", resp.StatusCode, path, resp.Status)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response for %q: %w", path, err)
	}
	return nil
}
