package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"ratecache/internal/domain"

	"github.com/sirupsen/logrus"
)

type ChangeBaseRequest struct {
	Code string `json:"code"`
}

type ChangeBaseResponse struct {
	TaskID string `json:"task_id"`
}

// ChangeBase godoc
// @Summary Change base currency
// @Description Create a background task that rebases every cached rate onto a new base currency
// @Tags Conversion
// @Accept json
// @Produce json
// @Param request body ChangeBaseRequest true "New base currency"
// @Success 202 {object} ChangeBaseResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /base-currency [post]
func (h *Handler) ChangeBase(w http.ResponseWriter, r *http.Request) {
	var req ChangeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	taskID, err := h.conversion.RequestBaseChange(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedCurrency) {
			writeError(w, http.StatusBadRequest, "currency not supported")
			return
		}
		msg := "couldn't schedule base currency change"
		logrus.WithError(err).WithField("handler", "ChangeBase").Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusAccepted, ChangeBaseResponse{TaskID: taskID.String()})
}
