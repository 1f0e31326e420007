package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createHistoricalOrder = `-- name: CreateHistoricalOrder :one
INSERT INTO historical_orders (
    id, customer_name, table_number, table_id, status, total, items_count, is_delivery,
    kitchen_id, external_id, discount, order_source, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
)
RETURNING id, customer_name, table_number, table_id, status, total, items_count, is_delivery,
          kitchen_id, external_id, discount, order_source, created_at, updated_at, archived_at
`

type CreateHistoricalOrderParams struct {
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

func (q *Queries) CreateHistoricalOrder(ctx context.Context, arg CreateHistoricalOrderParams) (HistoricalOrder, error) {
	row := q.db.QueryRow(ctx, createHistoricalOrder,
		arg.ID,
		arg.CustomerName,
		arg.TableNumber,
		arg.TableID,
		arg.Status,
		arg.Total,
		arg.ItemsCount,
		arg.IsDelivery,
		arg.KitchenID,
		arg.ExternalID,
		arg.Discount,
		arg.OrderSource,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i HistoricalOrder
	err := row.Scan(
		&i.ID,
		&i.CustomerName,
		&i.TableNumber,
		&i.TableID,
		&i.Status,
		&i.Total,
		&i.ItemsCount,
		&i.IsDelivery,
		&i.KitchenID,
		&i.ExternalID,
		&i.Discount,
		&i.OrderSource,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ArchivedAt,
	)
	return i, err
}

type CreateHistoricalOrderItemsParams struct {
	ID         uuid.UUID          `json:"id"`
	OrderID    uuid.UUID          `json:"order_id"`
	MenuItemID pgtype.UUID        `json:"menu_item_id"`
	Name       string             `json:"name"`
	Price      pgtype.Numeric     `json:"price"`
	Quantity   int32              `json:"quantity"`
	Notes      pgtype.Text        `json:"notes"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

// iteratorForCreateHistoricalOrderItems implements pgx.CopyFromSource.
type iteratorForCreateHistoricalOrderItems struct {
	rows                 []CreateHistoricalOrderItemsParams
	skippedFirstNextCall bool
}

func (r *iteratorForCreateHistoricalOrderItems) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForCreateHistoricalOrderItems) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].ID,
		r.rows[0].OrderID,
		r.rows[0].MenuItemID,
		r.rows[0].Name,
		r.rows[0].Price,
		r.rows[0].Quantity,
		r.rows[0].Notes,
		r.rows[0].CreatedAt,
	}, nil
}

func (r iteratorForCreateHistoricalOrderItems) Err() error {
	return nil
}

func (q *Queries) CreateHistoricalOrderItems(ctx context.Context, arg []CreateHistoricalOrderItemsParams) (int64, error) {
	return q.db.CopyFrom(ctx, []string{"historical_order_items"}, []string{"id", "order_id", "menu_item_id", "name", "price", "quantity", "notes", "created_at"}, &iteratorForCreateHistoricalOrderItems{rows: arg})
}

const getHistoricalOrder = `-- name: GetHistoricalOrder :one
SELECT id, customer_name, table_number, table_id, status, total, items_count, is_delivery,
       kitchen_id, external_id, discount, order_source, created_at, updated_at, archived_at
FROM historical_orders
WHERE id = $1
`

func (q *Queries) GetHistoricalOrder(ctx context.Context, id uuid.UUID) (HistoricalOrder, error) {
	row := q.db.QueryRow(ctx, getHistoricalOrder, id)
	var i HistoricalOrder
	err := row.Scan(
		&i.ID,
		&i.CustomerName,
		&i.TableNumber,
		&i.TableID,
		&i.Status,
		&i.Total,
		&i.ItemsCount,
		&i.IsDelivery,
		&i.KitchenID,
		&i.ExternalID,
		&i.Discount,
		&i.OrderSource,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ArchivedAt,
	)
	return i, err
}

const listHistoricalOrderItemsByOrder = `-- name: ListHistoricalOrderItemsByOrder :many
SELECT id, order_id, menu_item_id, name, price, quantity, notes, created_at
FROM historical_order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListHistoricalOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]HistoricalOrderItem, error) {
	rows, err := q.db.Query(ctx, listHistoricalOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []HistoricalOrderItem{}
	for rows.Next() {
		var i HistoricalOrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.MenuItemID,
			&i.Name,
			&i.Price,
			&i.Quantity,
			&i.Notes,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listHistoricalOrders = `-- name: ListHistoricalOrders :many
SELECT id, customer_name, table_number, table_id, status, total, items_count, is_delivery,
       kitchen_id, external_id, discount, order_source, created_at, updated_at, archived_at
FROM historical_orders
ORDER BY archived_at DESC, id
LIMIT $1 OFFSET $2
`

type ListHistoricalOrdersParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListHistoricalOrders(ctx context.Context, arg ListHistoricalOrdersParams) ([]HistoricalOrder, error) {
	rows, err := q.db.Query(ctx, listHistoricalOrders, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []HistoricalOrder{}
	for rows.Next() {
		var i HistoricalOrder
		if err := rows.Scan(
			&i.ID,
			&i.CustomerName,
			&i.TableNumber,
			&i.TableID,
			&i.Status,
			&i.Total,
			&i.ItemsCount,
			&i.IsDelivery,
			&i.KitchenID,
			&i.ExternalID,
			&i.Discount,
			&i.OrderSource,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.ArchivedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
