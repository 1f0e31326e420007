package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getSetting = `-- name: GetSetting :one
SELECT id, key, value, description, updated_at FROM system_settings
WHERE key = $1
`

func (q *Queries) GetSetting(ctx context.Context, key string) (SystemSetting, error) {
	row := q.db.QueryRow(ctx, getSetting, key)
	var i SystemSetting
	err := row.Scan(
		&i.ID,
		&i.Key,
		&i.Value,
		&i.Description,
		&i.UpdatedAt,
	)
	return i, err
}

const listSettingsByKeys = `-- name: ListSettingsByKeys :many
SELECT id, key, value, description, updated_at FROM system_settings
WHERE key = ANY($1::text[])
ORDER BY key
`

func (q *Queries) ListSettingsByKeys(ctx context.Context, keys []string) ([]SystemSetting, error) {
	rows, err := q.db.Query(ctx, listSettingsByKeys, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SystemSetting{}
	for rows.Next() {
		var i SystemSetting
		if err := rows.Scan(
			&i.ID,
			&i.Key,
			&i.Value,
			&i.Description,
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

const upsertSetting = `-- name: UpsertSetting :one
INSERT INTO system_settings (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
RETURNING id, key, value, description, updated_at
`

type UpsertSettingParams struct {
	Key   string      `json:"key"`
	Value pgtype.Text `json:"value"`
}

func (q *Queries) UpsertSetting(ctx context.Context, arg UpsertSettingParams) (SystemSetting, error) {
	row := q.db.QueryRow(ctx, upsertSetting, arg.Key, arg.Value)
	var i SystemSetting
	err := row.Scan(
		&i.ID,
		&i.Key,
		&i.Value,
		&i.Description,
		&i.UpdatedAt,
	)
	return i, err
}
