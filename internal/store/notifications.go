package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

type NotificationStore struct{ db *sql.DB }

func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "marshal notification data", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (username, type, title, message, data, priority, ttl_seconds)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		n.Username, n.Type, n.Title, n.Message, data, string(n.Priority), int64(n.TTL.Seconds())).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "insert notification", err)
	}
	return nil
}

func (s *NotificationStore) ListUnread(ctx context.Context, username string) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, type, title, message, data, priority, ttl_seconds, created_at, read_at
		FROM notifications WHERE username = $1 AND read_at IS NULL ORDER BY created_at ASC`, username)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "list unread notifications", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		var priority string
		var ttlSeconds int64
		var data []byte
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.Username, &n.Type, &n.Title, &n.Message, &data,
			&priority, &ttlSeconds, &n.CreatedAt, &readAt); err != nil {
			return nil, gatewayerr.New(gatewayerr.Internal, "scan notification", err)
		}
		n.Priority = models.NotificationPriority(priority)
		n.TTL = time.Duration(ttlSeconds) * time.Second
		if len(data) > 0 {
			_ = json.Unmarshal(data, &n.Data)
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *NotificationStore) MarkRead(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read_at = now() WHERE id = $1`, id)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "mark notification read", err)
	}
	return nil
}
