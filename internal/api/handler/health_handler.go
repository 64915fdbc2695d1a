package handler

import (
	"net/http"
	"total_loc/internal/app/queue"
	"total_loc/internal/common"
)

type HealthResponse struct {
	Status string `json:"status"`
	queue.Stats
}

type statsSource interface {
	Health() queue.Stats
}

type HealthHandler struct {
	source statsSource
}

func NewHealthHandler(source statsSource) *HealthHandler {
	return &HealthHandler{source: source}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Stats: h.source.Health()})
}
