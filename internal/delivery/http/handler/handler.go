package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/user/grant-aggregator/internal/delivery/http/request"
	"github.com/user/grant-aggregator/internal/delivery/http/response"
	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/internal/usecase"
)

type Handler struct {
	grants usecase.GrantQuery
	syncs  usecase.SyncManager
}

func NewHandler(grants usecase.GrantQuery, syncs usecase.SyncManager) *Handler {
	return &Handler{
		grants: grants,
		syncs:  syncs,
	}
}

func (h *Handler) HandleListGrants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		h.writeJSONError(w, "page must be an integer", http.StatusBadRequest)
		return
	}
	limit, err := intParam(q.Get("limit"), entity.DefaultPageLimit)
	if err != nil {
		h.writeJSONError(w, "limit must be an integer", http.StatusBadRequest)
		return
	}

	filter := entity.GrantFilter{
		Status:  entity.GrantStatus(q.Get("status")),
		Source:  entity.Source(q.Get("source")),
		Keyword: q.Get("keyword"),
		Sort:    q.Get("sort"),
		Order:   q.Get("order"),
		Page:    page,
		Limit:   limit,
	}

	result, err := h.grants.List(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list grants", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewGrantList(result))
}

func (h *Handler) HandleGetGrant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSONError(w, "Invalid grant id", http.StatusBadRequest)
		return
	}

	g, err := h.grants.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Grant not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get grant", "id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewGrantDetail(g))
}

func (h *Handler) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	var req request.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	jobs, err := h.syncs.Submit(r.Context(), req.Source, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnknownSource):
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, usecase.ErrSyncRecentlyRequested):
			h.writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			slog.Error("Failed to submit sync", "source", req.Source, "error", err)
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	resp := response.SyncResponse{
		ScrapeLogID: jobs[0].RunID,
		Message:     fmt.Sprintf("Sync started for source: %s", req.Source),
	}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, response.SyncJobResponse{ScrapeLogID: job.RunID, Source: string(job.Source)})
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleGetSyncStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSONError(w, "Invalid sync id", http.StatusBadRequest)
		return
	}

	status, err := h.syncs.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Sync log not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get sync status", "id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewScrapeLog(status))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
