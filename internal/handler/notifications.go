package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/archiver/internal/database"
)

// NotificationStore defines the database methods needed by notification handlers.
type NotificationStore interface {
	ListNotifications(ctx context.Context, arg database.ListNotificationsParams) ([]database.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) (database.Notification, error)
}

// NotificationHandler serves the admin notification feed.
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// RegisterRoutes registers notification endpoints, mounted at /notifications.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{id}/read", h.MarkRead)
}

type notificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	Link      *string    `json:"link"`
	IsRead    bool       `json:"is_read"`
	CreatedAt *time.Time `json:"created_at"`
}

type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}

// List handles GET /notifications. ?unread=true restricts to unread entries.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	unread := r.URL.Query().Get("unread") == "true"

	rows, err := h.store.ListNotifications(r.Context(), database.ListNotificationsParams{
		UnreadOnly: unread,
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := notificationListResponse{
		Notifications: make([]notificationResponse, len(rows)),
		Limit:         limit,
		Offset:        offset,
	}
	for i, n := range rows {
		resp.Notifications[i] = toNotificationResponse(n)
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification ID"})
		return
	}

	n, err := h.store.MarkNotificationRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		log.Printf("ERROR: mark notification read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

func toNotificationResponse(n database.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Link:      textPtr(n.Link),
		IsRead:    n.IsRead,
		CreatedAt: timePtr(n.CreatedAt),
	}
}
