package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/enum"
	"github.com/kiwari-pos/archiver/internal/service"
)

// SettingsManager defines the settings operations used by the handler.
// Satisfied by *service.SettingsService.
type SettingsManager interface {
	Load(ctx context.Context) (service.ArchiveSettings, []database.SystemSetting, error)
	Save(ctx context.Context, updates []database.UpsertSettingParams) error
}

// SettingsHandler handles the archive settings admin endpoints.
type SettingsHandler struct {
	svc SettingsManager
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(svc SettingsManager) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// RegisterRoutes registers settings endpoints, mounted at /archive/settings.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Update)
}

// --- Request / Response types ---

type archiveSettingsResponse struct {
	AutoArchiveEnabled   bool    `json:"auto_archive_enabled"`
	CompletedHours       int     `json:"completed_hours"`
	CancelledHours       int     `json:"cancelled_hours"`
	TestOrdersHours      int     `json:"test_orders_hours"`
	ArchiveIntervalHours int     `json:"archive_interval_hours"`
	LastArchiveRun       *string `json:"last_archive_run"`
}

type settingsEnvelope struct {
	Settings archiveSettingsResponse `json:"settings"`
	Rows     []settingRowResponse    `json:"rows"`
}

type updateSettingsRequest struct {
	AutoArchiveEnabled   *bool `json:"auto_archive_enabled"`
	CompletedHours       *int  `json:"completed_hours"`
	CancelledHours       *int  `json:"cancelled_hours"`
	TestOrdersHours      *int  `json:"test_orders_hours"`
	ArchiveIntervalHours *int  `json:"archive_interval_hours"`
}

// --- Handlers ---

// Get handles GET /archive/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, rows, err := h.svc.Load(r.Context())
	if err != nil {
		log.Printf("ERROR: get archive settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toSettingsEnvelope(settings, rows))
}

// Update handles PUT /archive/settings. Only the fields present are written,
// in one transaction. last_archive_run is owned by the archive job and cannot
// be set here.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var updates []database.UpsertSettingParams
	if req.AutoArchiveEnabled != nil {
		updates = append(updates, database.UpsertSettingParams{
			Key:   enum.SettingAutoArchiveEnabled,
			Value: pgtype.Text{String: strconv.FormatBool(*req.AutoArchiveEnabled), Valid: true},
		})
	}

	hours := []struct {
		key string
		val *int
	}{
		{enum.SettingCompletedHours, req.CompletedHours},
		{enum.SettingCancelledHours, req.CancelledHours},
		{enum.SettingTestOrdersHours, req.TestOrdersHours},
		{enum.SettingArchiveIntervalHours, req.ArchiveIntervalHours},
	}
	for _, hv := range hours {
		if hv.val == nil {
			continue
		}
		if *hv.val <= 0 || *hv.val > service.MaxRetentionHours {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": hv.key + " must be between 1 and " + strconv.Itoa(service.MaxRetentionHours),
			})
			return
		}
		updates = append(updates, database.UpsertSettingParams{
			Key:   hv.key,
			Value: pgtype.Text{String: strconv.Itoa(*hv.val), Valid: true},
		})
	}

	if len(updates) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no settings to update"})
		return
	}

	if err := h.svc.Save(r.Context(), updates); err != nil {
		log.Printf("ERROR: update archive settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	settings, rows, err := h.svc.Load(r.Context())
	if err != nil {
		log.Printf("ERROR: reload archive settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toSettingsEnvelope(settings, rows))
}

func toSettingsEnvelope(s service.ArchiveSettings, rows []database.SystemSetting) settingsEnvelope {
	resp := settingsEnvelope{
		Settings: archiveSettingsResponse{
			AutoArchiveEnabled:   s.AutoArchiveEnabled,
			CompletedHours:       s.CompletedHours,
			CancelledHours:       s.CancelledHours,
			TestOrdersHours:      s.TestOrdersHours,
			ArchiveIntervalHours: s.ArchiveIntervalHours,
		},
		Rows: make([]settingRowResponse, len(rows)),
	}
	if s.LastRun != nil {
		v := service.FormatTimestamp(*s.LastRun)
		resp.Settings.LastArchiveRun = &v
	}
	for i, row := range rows {
		resp.Rows[i] = settingToResponse(row)
	}
	return resp
}
