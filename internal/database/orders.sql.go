package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const archiveOrder = `-- name: ArchiveOrder :execrows
UPDATE orders
SET status = 'archived', updated_at = $3
WHERE id = $1 AND status = $2
`

type ArchiveOrderParams struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArchiveOrder only matches while the order still carries the status it was
// selected with, so a concurrent status change wins over the archive.
func (q *Queries) ArchiveOrder(ctx context.Context, arg ArchiveOrderParams) (int64, error) {
	result, err := q.db.Exec(ctx, archiveOrder, arg.ID, arg.Status, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listOrdersCreatedBefore = `-- name: ListOrdersCreatedBefore :many
SELECT id, customer_name, table_number, table_id, status, total, items_count, is_delivery,
       kitchen_id, external_id, discount, order_source, created_at, updated_at
FROM orders
WHERE status = ANY($1::text[])
  AND status <> 'archived'
  AND created_at < $2
  AND id > $3
ORDER BY id
LIMIT $4
`

type ListOrdersCreatedBeforeParams struct {
	Statuses []string  `json:"statuses"`
	Before   time.Time `json:"before"`
	AfterID  uuid.UUID `json:"after_id"`
	Limit    int32     `json:"limit"`
}

func (q *Queries) ListOrdersCreatedBefore(ctx context.Context, arg ListOrdersCreatedBeforeParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersCreatedBefore,
		arg.Statuses,
		arg.Before,
		arg.AfterID,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

const listOrdersUpdatedBefore = `-- name: ListOrdersUpdatedBefore :many
SELECT id, customer_name, table_number, table_id, status, total, items_count, is_delivery,
       kitchen_id, external_id, discount, order_source, created_at, updated_at
FROM orders
WHERE status = ANY($1::text[])
  AND status <> 'archived'
  AND updated_at < $2
  AND id > $3
ORDER BY id
LIMIT $4
`

type ListOrdersUpdatedBeforeParams struct {
	Statuses []string  `json:"statuses"`
	Before   time.Time `json:"before"`
	AfterID  uuid.UUID `json:"after_id"`
	Limit    int32     `json:"limit"`
}

func (q *Queries) ListOrdersUpdatedBefore(ctx context.Context, arg ListOrdersUpdatedBeforeParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersUpdatedBefore,
		arg.Statuses,
		arg.Before,
		arg.AfterID,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, menu_item_id, name, price, quantity, notes, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
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

type orderRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanOrders(rows orderRows) ([]Order, error) {
	items := []Order{}
	for rows.Next() {
		var i Order
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
