package coachsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/fdg312/run-coach/internal/blob"
	"github.com/fdg312/run-coach/internal/export"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleChat serves POST /chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.Chat(r.Context(), req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleListExchanges serves GET /v1/exchanges.
func (h *Handler) HandleListExchanges(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
			return
		}
		limit = parsed
	}

	resp, err := h.service.ListExchanges(r.Context(), limit)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleExport serves POST /v1/exchanges/export.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	resp, err := h.service.ExportExchanges(r.Context(), req.Format)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if resp.DownloadURL == "" {
		resp.DownloadURL = getBaseURL(r) + "/v1/exports/" + resp.Key
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleDownloadExport serves GET /v1/exports/{key...}.
func (h *Handler) HandleDownloadExport(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, format, err := h.service.OpenExport(r.Context(), key)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", path.Base(key)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, export.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "invalid_format", "Format must be 'pdf' or 'csv'")
	case errors.Is(err, ErrExportDisabled):
		writeError(w, http.StatusNotFound, "not_found", "Export is disabled")
	case errors.Is(err, blob.ErrNotFound), errors.Is(err, blob.ErrInvalidKey):
		writeError(w, http.StatusNotFound, "export_not_found", "Export not found")
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "message and snapshot are required")
	case errors.Is(err, ErrAIFailed):
		log.Printf("coach: %v", err)
		writeError(w, http.StatusBadGateway, "ai_failed", "AI provider failed")
	default:
		log.Printf("coach: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
