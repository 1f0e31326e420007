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

// HistoricalStore defines the database methods needed by historical order handlers.
type HistoricalStore interface {
	ListHistoricalOrders(ctx context.Context, arg database.ListHistoricalOrdersParams) ([]database.HistoricalOrder, error)
	GetHistoricalOrder(ctx context.Context, id uuid.UUID) (database.HistoricalOrder, error)
	ListHistoricalOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.HistoricalOrderItem, error)
}

// HistoricalHandler serves read-only access to archived orders.
type HistoricalHandler struct {
	store HistoricalStore
}

// NewHistoricalHandler creates a new HistoricalHandler.
func NewHistoricalHandler(store HistoricalStore) *HistoricalHandler {
	return &HistoricalHandler{store: store}
}

// RegisterRoutes registers historical order endpoints, mounted at /historical-orders.
func (h *HistoricalHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// --- Response types ---

type historicalOrderResponse struct {
	ID           uuid.UUID                     `json:"id"`
	CustomerName string                        `json:"customer_name"`
	TableNumber  *int32                        `json:"table_number"`
	TableID      *uuid.UUID                    `json:"table_id"`
	Status       string                        `json:"status"`
	Total        string                        `json:"total"`
	ItemsCount   int32                         `json:"items_count"`
	IsDelivery   bool                          `json:"is_delivery"`
	KitchenID    *uuid.UUID                    `json:"kitchen_id"`
	ExternalID   *string                       `json:"external_id"`
	Discount     string                        `json:"discount"`
	OrderSource  *string                       `json:"order_source"`
	CreatedAt    *time.Time                    `json:"created_at"`
	UpdatedAt    *time.Time                    `json:"updated_at"`
	ArchivedAt   *time.Time                    `json:"archived_at"`
	Items        []historicalOrderItemResponse `json:"items,omitempty"`
}

type historicalOrderItemResponse struct {
	ID         uuid.UUID  `json:"id"`
	MenuItemID *uuid.UUID `json:"menu_item_id"`
	Name       string     `json:"name"`
	Price      string     `json:"price"`
	Quantity   int32      `json:"quantity"`
	Notes      *string    `json:"notes"`
}

type historicalListResponse struct {
	Orders []historicalOrderResponse `json:"orders"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

// --- Handlers ---

// List handles GET /historical-orders, newest archive first.
func (h *HistoricalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	orders, err := h.store.ListHistoricalOrders(r.Context(), database.ListHistoricalOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list historical orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := historicalListResponse{
		Orders: make([]historicalOrderResponse, len(orders)),
		Limit:  limit,
		Offset: offset,
	}
	for i, o := range orders {
		resp.Orders[i] = toHistoricalOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /historical-orders/{id} with its copied items.
func (h *HistoricalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetHistoricalOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "historical order not found"})
			return
		}
		log.Printf("ERROR: get historical order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListHistoricalOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list historical order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toHistoricalOrderResponse(order)
	resp.Items = make([]historicalOrderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = historicalOrderItemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Price:    numericToString(item.Price),
			Quantity: item.Quantity,
			Notes:    textPtr(item.Notes),
		}
		if item.MenuItemID.Valid {
			mid := uuid.UUID(item.MenuItemID.Bytes)
			resp.Items[i].MenuItemID = &mid
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toHistoricalOrderResponse(o database.HistoricalOrder) historicalOrderResponse {
	resp := historicalOrderResponse{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		Status:       o.Status,
		Total:        numericToString(o.Total),
		ItemsCount:   o.ItemsCount,
		IsDelivery:   o.IsDelivery,
		ExternalID:   textPtr(o.ExternalID),
		Discount:     numericToString(o.Discount),
		OrderSource:  textPtr(o.OrderSource),
		CreatedAt:    timePtr(o.CreatedAt),
		UpdatedAt:    timePtr(o.UpdatedAt),
		ArchivedAt:   timePtr(o.ArchivedAt),
	}
	if o.TableNumber.Valid {
		resp.TableNumber = &o.TableNumber.Int32
	}
	if o.TableID.Valid {
		tid := uuid.UUID(o.TableID.Bytes)
		resp.TableID = &tid
	}
	if o.KitchenID.Valid {
		kid := uuid.UUID(o.KitchenID.Bytes)
		resp.KitchenID = &kid
	}
	return resp
}
