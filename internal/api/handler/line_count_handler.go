package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"total_loc/internal/app/service"
	"total_loc/internal/common"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type LineCountHandler struct {
	lineCountService *service.LineCountService
	log              *logrus.Entry
}

func NewLineCountHandler(lcs *service.LineCountService, log *logrus.Entry) *LineCountHandler {
	return &LineCountHandler{lineCountService: lcs, log: log}
}

func (h *LineCountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.submit)
	r.Get("/{requestID}", h.status)
}

func (h *LineCountHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.lineCountService.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			common.RespondWithError(w, http.StatusBadRequest, "user_id and access_token are required")
			return
		}
		h.log.WithError(err).Error("Failed to submit line count request")
		common.RespondWithStatusError(w, err)
		return
	}

	common.RespondWithJSON(w, http.StatusAccepted, resp) // Accepted (202), counting runs in the background
}

func (h *LineCountHandler) status(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	view, err := h.lineCountService.Status(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.RespondWithError(w, http.StatusNotFound, "request not found")
			return
		}
		common.RespondWithStatusError(w, err)
		return
	}

	common.RespondWithJSON(w, http.StatusOK, view)
}
