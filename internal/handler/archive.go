package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/service"
)

// maxInvokeBody caps how much of the request body is read.
const maxInvokeBody = 64 << 10

// ArchiveInvoker defines the service method needed by the archive function.
// Satisfied by *service.ArchiveService; narrow interface for testability.
type ArchiveInvoker interface {
	Invoke(ctx context.Context, action string) (*service.InvokeResult, error)
}

// ArchiveHandler exposes the archive job as a callable function.
type ArchiveHandler struct {
	svc ArchiveInvoker
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(svc ArchiveInvoker) *ArchiveHandler {
	return &ArchiveHandler{svc: svc}
}

// RegisterRoutes registers the function endpoint.
// Expected to be mounted at /functions/v1/archive-orders behind FunctionHeaders.
func (h *ArchiveHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Invoke)
}

// --- Request / Response types ---

type invokeRequest struct {
	Action string `json:"action"`
}

type settingRowResponse struct {
	ID          uuid.UUID  `json:"id"`
	Key         string     `json:"key"`
	Value       *string    `json:"value"`
	Description *string    `json:"description"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type checkStatusResponse struct {
	Status   string               `json:"status"`
	Settings []settingRowResponse `json:"settings"`
	Message  string               `json:"message"`
}

type disabledResponse struct {
	Message   string `json:"message"`
	Processed int    `json:"processed"`
}

type nothingToArchiveResponse struct {
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	LastRun   string `json:"last_run"`
}

type archiveCompletedResponse struct {
	Message   string             `json:"message"`
	Processed int                `json:"processed"`
	Errors    int                `json:"errors"`
	LastRun   string             `json:"last_run"`
	Details   service.RunDetails `json:"details"`
}

// --- Handlers ---

// Invoke handles POST /functions/v1/archive-orders.
// An empty or malformed body is treated as {"action":"run-now"}.
func (h *ArchiveHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInvokeBody))
	if err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			req = invokeRequest{}
		}
	}

	res, err := h.svc.Invoke(r.Context(), req.Action)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: archive function: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	switch res.Kind {
	case service.ResultStatus:
		rows := make([]settingRowResponse, len(res.Settings))
		for i, s := range res.Settings {
			rows[i] = settingToResponse(s)
		}
		writeJSON(w, http.StatusOK, checkStatusResponse{
			Status:   "active",
			Settings: rows,
			Message:  "Archive function is active",
		})
	case service.ResultDisabled:
		writeJSON(w, http.StatusOK, disabledResponse{
			Message:   "Auto-archiving is disabled",
			Processed: 0,
		})
	case service.ResultNothingToArchive:
		writeJSON(w, http.StatusOK, nothingToArchiveResponse{
			Message:   "No orders to archive",
			Processed: 0,
			LastRun:   service.FormatTimestamp(res.LastRun),
		})
	default:
		writeJSON(w, http.StatusOK, archiveCompletedResponse{
			Message:   "Archive process completed",
			Processed: res.Processed,
			Errors:    res.Errors,
			LastRun:   service.FormatTimestamp(res.LastRun),
			Details:   res.Details,
		})
	}
}

func settingToResponse(s database.SystemSetting) settingRowResponse {
	resp := settingRowResponse{
		ID:  s.ID,
		Key: s.Key,
	}
	if s.Value.Valid {
		resp.Value = &s.Value.String
	}
	if s.Description.Valid {
		resp.Description = &s.Description.String
	}
	if s.UpdatedAt.Valid {
		resp.UpdatedAt = &s.UpdatedAt.Time
	}
	return resp
}
