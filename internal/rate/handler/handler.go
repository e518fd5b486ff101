package handler

import (
	"encoding/json"
	"net/http"

	"ratecache/internal/adapters"
	"ratecache/internal/conversion"
	"ratecache/internal/rate"
)

type Handler struct {
	cache      *rate.Cache
	conversion *conversion.Service
	source     adapters.RateSource
	supported  map[string]struct{}
}

func NewHandler(cache *rate.Cache, conversionSvc *conversion.Service, source adapters.RateSource, supported map[string]struct{}) *Handler {
	return &Handler{
		cache:      cache,
		conversion: conversionSvc,
		source:     source,
		supported:  supported,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorMsg,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
