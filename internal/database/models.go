package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type HistoricalOrder struct {
	ID           uuid.UUID          `json:"id"`
	CustomerName string             `json:"customer_name"`
	TableNumber  pgtype.Int4        `json:"table_number"`
	TableID      pgtype.UUID        `json:"table_id"`
	Status       string             `json:"status"`
	Total        pgtype.Numeric     `json:"total"`
	ItemsCount   int32              `json:"items_count"`
	IsDelivery   bool               `json:"is_delivery"`
	KitchenID    pgtype.UUID        `json:"kitchen_id"`
	ExternalID   pgtype.Text        `json:"external_id"`
	Discount     pgtype.Numeric     `json:"discount"`
	OrderSource  pgtype.Text        `json:"order_source"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
	ArchivedAt   pgtype.Timestamptz `json:"archived_at"`
}

type HistoricalOrderItem struct {
	ID         uuid.UUID          `json:"id"`
	OrderID    uuid.UUID          `json:"order_id"`
	MenuItemID pgtype.UUID        `json:"menu_item_id"`
	Name       string             `json:"name"`
	Price      pgtype.Numeric     `json:"price"`
	Quantity   int32              `json:"quantity"`
	Notes      pgtype.Text        `json:"notes"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type Notification struct {
	ID        uuid.UUID          `json:"id"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Type      string             `json:"type"`
	Link      pgtype.Text        `json:"link"`
	IsRead    bool               `json:"is_read"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Order struct {
	ID           uuid.UUID          `json:"id"`
	CustomerName string             `json:"customer_name"`
	TableNumber  pgtype.Int4        `json:"table_number"`
	TableID      pgtype.UUID        `json:"table_id"`
	Status       string             `json:"status"`
	Total        pgtype.Numeric     `json:"total"`
	ItemsCount   int32              `json:"items_count"`
	IsDelivery   bool               `json:"is_delivery"`
	KitchenID    pgtype.UUID        `json:"kitchen_id"`
	ExternalID   pgtype.Text        `json:"external_id"`
	Discount     pgtype.Numeric     `json:"discount"`
	OrderSource  pgtype.Text        `json:"order_source"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type OrderItem struct {
	ID         uuid.UUID          `json:"id"`
	OrderID    uuid.UUID          `json:"order_id"`
	MenuItemID pgtype.UUID        `json:"menu_item_id"`
	Name       string             `json:"name"`
	Price      pgtype.Numeric     `json:"price"`
	Quantity   int32              `json:"quantity"`
	Notes      pgtype.Text        `json:"notes"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type SystemSetting struct {
	ID          uuid.UUID          `json:"id"`
	Key         string             `json:"key"`
	Value       pgtype.Text        `json:"value"`
	Description pgtype.Text        `json:"description"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}
