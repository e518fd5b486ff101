package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

type StatusResponse struct {
	QuotaRemaining bool `json:"quota_remaining"`
}

// Status godoc
// @Summary External provider status
// @Description Report whether the external rate provider has request quota left
// @Tags Status
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 502 {object} errorResponse
// @Router /status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	remaining, err := h.source.QuotaRemaining(r.Context())
	if err != nil {
		msg := "couldn't reach external provider"
		logrus.WithError(err).WithField("handler", "Status").Error(msg)
		writeError(w, http.StatusBadGateway, msg)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{QuotaRemaining: remaining})
}
