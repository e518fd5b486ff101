package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"ratecache/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type GetRateResponse struct {
	Code     string          `json:"code"`
	Value    decimal.Decimal `json:"value"`
	RateDate time.Time       `json:"rate_date"`
}

// GetCurrent godoc
// @Summary Get current rate
// @Description Get the freshest cached rate for a currency relative to the base currency
// @Tags Rates
// @Produce json
// @Param code path string true "Currency code"
// @Success 200 {object} GetRateResponse
// @Failure 400 {object} errorResponse
// @Failure 429 {object} errorResponse "external quota exhausted"
// @Failure 503 {object} errorResponse "conversion in progress"
// @Failure 500 {object} errorResponse
// @Router /rates/{code} [get]
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	code, ok := h.currencyParam(w, r)
	if !ok {
		return
	}

	rateRow, err := h.cache.GetCurrent(r.Context(), code)
	if err != nil {
		h.writeRateError(w, r, "GetCurrent", code, err)
		return
	}

	writeJSON(w, http.StatusOK, GetRateResponse{
		Code:     rateRow.Code,
		Value:    rateRow.Value,
		RateDate: rateRow.RateDate,
	})
}

// GetOnDate godoc
// @Summary Get rate on date
// @Description Get the cached rate for a currency on a calendar date (UTC)
// @Tags Rates
// @Produce json
// @Param code path string true "Currency code"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} GetRateResponse
// @Failure 400 {object} errorResponse
// @Failure 429 {object} errorResponse "external quota exhausted"
// @Failure 503 {object} errorResponse "conversion in progress"
// @Failure 500 {object} errorResponse
// @Router /rates/{code}/{date} [get]
func (h *Handler) GetOnDate(w http.ResponseWriter, r *http.Request) {
	code, ok := h.currencyParam(w, r)
	if !ok {
		return
	}

	date, err := time.ParseInLocation("2006-01-02", chi.URLParam(r, "date"), time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if date.After(time.Now().UTC()) {
		writeError(w, http.StatusBadRequest, "date must not be in the future")
		return
	}

	rateRow, err := h.cache.GetOnDate(r.Context(), code, date)
	if err != nil {
		h.writeRateError(w, r, "GetOnDate", code, err)
		return
	}

	writeJSON(w, http.StatusOK, GetRateResponse{
		Code:     rateRow.Code,
		Value:    rateRow.Value,
		RateDate: rateRow.RateDate,
	})
}

func (h *Handler) currencyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if code == "" {
		writeError(w, http.StatusBadRequest, "currency code is required")
		return "", false
	}
	if _, ok := h.supported[code]; !ok {
		writeError(w, http.StatusBadRequest, "currency not supported")
		return "", false
	}
	return code, true
}

func (h *Handler) writeRateError(w http.ResponseWriter, r *http.Request, handlerName, code string, err error) {
	switch {
	case errors.Is(err, domain.ErrQuotaExhausted):
		writeError(w, http.StatusTooManyRequests, "external api quota exhausted")
	case errors.Is(err, domain.ErrCacheUpdateTimeout):
		w.Header().Set("Retry-After", "10")
		writeError(w, http.StatusServiceUnavailable, "base currency conversion in progress, retry later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; nothing useful to write.
	default:
		msg := "couldn't get rate this time"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": handlerName, "code": code}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
