package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createNotification = `-- name: CreateNotification :one
INSERT INTO notifications (title, message, type, link)
VALUES ($1, $2, $3, $4)
RETURNING id, title, message, type, link, is_read, created_at
`

type CreateNotificationParams struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Link    pgtype.Text `json:"link"`
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRow(ctx, createNotification,
		arg.Title,
		arg.Message,
		arg.Type,
		arg.Link,
	)
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Message,
		&i.Type,
		&i.Link,
		&i.IsRead,
		&i.CreatedAt,
	)
	return i, err
}

const listNotifications = `-- name: ListNotifications :many
SELECT id, title, message, type, link, is_read, created_at
FROM notifications
WHERE ($1::bool = FALSE OR is_read = FALSE)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3
`

type ListNotificationsParams struct {
	UnreadOnly bool  `json:"unread_only"`
	Limit      int32 `json:"limit"`
	Offset     int32 `json:"offset"`
}

func (q *Queries) ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listNotifications, arg.UnreadOnly, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Notification{}
	for rows.Next() {
		var i Notification
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Message,
			&i.Type,
			&i.Link,
			&i.IsRead,
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

const markNotificationRead = `-- name: MarkNotificationRead :one
UPDATE notifications SET is_read = TRUE
WHERE id = $1
RETURNING id, title, message, type, link, is_read, created_at
`

func (q *Queries) MarkNotificationRead(ctx context.Context, id uuid.UUID) (Notification, error) {
	row := q.db.QueryRow(ctx, markNotificationRead, id)
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Message,
		&i.Type,
		&i.Link,
		&i.IsRead,
		&i.CreatedAt,
	)
	return i, err
}
