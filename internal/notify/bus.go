// Package notify implements the notification bus from spec §4.8: a
// persistence-backed per-user record store plus a best-effort WebSocket
// fan-out of channel status transitions. Persistence is authoritative;
// delivery to any connected client is best-effort, following the teacher
// toolkit's audit logger (internal/services/audit/logger.go), whose
// "append-only, disk is truth" framing this package keeps while moving the
// sink from an NDJSON file to the notifications table.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/models"
)

// Store is the persistence surface this bus writes through.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Bus creates per-user notification records and fans out status-change
// events to connected WebSocket clients. It holds no per-notification
// state; every call is a single DB write plus an optional hub publish.
type Bus struct {
	store  Store
	hub    *Hub
	logger *zap.Logger
}

func New(store Store, hub *Hub, logger *zap.Logger) *Bus {
	return &Bus{store: store, hub: hub, logger: logger}
}

// Notify persists a notification for username.
func (b *Bus) Notify(ctx context.Context, username, kind, title, message string, data map[string]interface{}, priority models.NotificationPriority, ttl time.Duration) error {
	n := &models.Notification{
		Username: username,
		Type:     kind,
		Title:    title,
		Message:  message,
		Data:     data,
		Priority: priority,
		TTL:      ttl,
	}
	if err := b.store.Create(ctx, n); err != nil {
		if b.logger != nil {
			b.logger.Warn("notification persist failed", zap.String("username", username), zap.String("type", kind), zap.Error(err))
		}
		return err
	}
	return nil
}

// PublishStatusChange fans out a channel's lifecycle transition to every
// WebSocket client subscribed to it. Best-effort: a client that is slow or
// disconnected simply misses the event, since the channel's status row in
// the database remains the source of truth any client can re-poll.
func (b *Bus) PublishStatusChange(channelID string, status models.ChannelStatus, txHash string) {
	if b.hub == nil {
		return
	}
	b.hub.Broadcast(StatusChangeEvent{
		ChannelID: channelID,
		Status:    status,
		TxHash:    txHash,
	})
}
