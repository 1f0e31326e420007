package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/handler"
)

// --- Mock store ---

type mockNotificationStore struct {
	notifications []database.Notification
	listErr       error
}

func (m *mockNotificationStore) ListNotifications(_ context.Context, arg database.ListNotificationsParams) ([]database.Notification, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []database.Notification
	for _, n := range m.notifications {
		if arg.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *mockNotificationStore) MarkNotificationRead(_ context.Context, id uuid.UUID) (database.Notification, error) {
	for i, n := range m.notifications {
		if n.ID == id {
			m.notifications[i].IsRead = true
			return m.notifications[i], nil
		}
	}
	return database.Notification{}, pgx.ErrNoRows
}

func setupNotificationRouter(store *mockNotificationStore) *chi.Mux {
	h := handler.NewNotificationHandler(store)
	r := chi.NewRouter()
	r.Route("/notifications", h.RegisterRoutes)
	return r
}

func notificationFixture() (*mockNotificationStore, uuid.UUID) {
	unreadID := uuid.New()
	ts := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	return &mockNotificationStore{notifications: []database.Notification{
		{
			ID: unreadID, Title: "Manual archive completed", Message: "2 orders archived",
			Type: "archive", Link: pgtype.Text{String: "/orders/history", Valid: true}, CreatedAt: ts,
		},
		{
			ID: uuid.New(), Title: "Scheduled archive completed", Message: "1 orders archived",
			Type: "archive", IsRead: true, CreatedAt: ts,
		},
	}}, unreadID
}

// --- Tests ---

func TestNotificationList_All(t *testing.T) {
	store, _ := notificationFixture()
	router := setupNotificationRouter(store)

	rr := doRequest(t, router, "GET", "/notifications", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	list := resp["notifications"].([]interface{})
	if len(list) != 2 {
		t.Fatalf("notifications: got %d, want 2", len(list))
	}
	first := list[0].(map[string]interface{})
	if first["link"] != "/orders/history" {
		t.Errorf("link: got %v", first["link"])
	}
	if resp["limit"] != float64(20) {
		t.Errorf("limit: got %v, want 20", resp["limit"])
	}
}

func TestNotificationList_UnreadOnly(t *testing.T) {
	store, unreadID := notificationFixture()
	router := setupNotificationRouter(store)

	rr := doRequest(t, router, "GET", "/notifications?unread=true", nil)
	resp := decodeResponse(t, rr)
	list := resp["notifications"].([]interface{})
	if len(list) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(list))
	}
	if list[0].(map[string]interface{})["id"] != unreadID.String() {
		t.Errorf("id: got %v, want %s", list[0].(map[string]interface{})["id"], unreadID)
	}
}

func TestNotificationList_StoreError(t *testing.T) {
	store := &mockNotificationStore{listErr: errors.New("db down")}
	router := setupNotificationRouter(store)

	rr := doRequest(t, router, "GET", "/notifications", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestNotificationMarkRead(t *testing.T) {
	store, unreadID := notificationFixture()
	router := setupNotificationRouter(store)

	rr := doRequest(t, router, "PATCH", "/notifications/"+unreadID.String()+"/read", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["is_read"] != true {
		t.Errorf("is_read: got %v, want true", resp["is_read"])
	}
	if !store.notifications[0].IsRead {
		t.Error("store not updated")
	}
}

func TestNotificationMarkRead_NotFound(t *testing.T) {
	store, _ := notificationFixture()
	router := setupNotificationRouter(store)

	rr := doRequest(t, router, "PATCH", "/notifications/"+uuid.New().String()+"/read", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
