package services

import (
	"context"
	"encoding/json"
	"time"

	"clouddrive/logger"
	"clouddrive/repositories"
)

const (
	EventFileCreated     = "file.created"
	EventFolderCreated   = "folder.created"
	EventFileUpdated     = "file.updated"
	EventFileDeleted     = "file.deleted"
	EventFileRestored    = "file.restored"
	EventFilePurged      = "file.purged"
	EventVersionCreated  = "version.created"
	EventVersionRestored = "version.restored"
	EventShareCreated    = "share.created"
	EventShareRevoked    = "share.revoked"
)

type Event struct {
	Type      string      `json:"type"`
	FileID    uint        `json:"file_id,omitempty"`
	ShareID   uint        `json:"share_id,omitempty"`
	Name      string      `json:"name,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Notifier fans mutation events out to a user's live sessions. Delivery is
// fire-and-forget: a publish failure never fails the originating request.
type Notifier interface {
	Notify(ctx context.Context, userID uint, event Event)
}

type eventNotifier struct {
	events repositories.EventPublisher
}

func NewNotifier(events repositories.EventPublisher) Notifier {
	return &eventNotifier{events: events}
}

func (n *eventNotifier) Notify(ctx context.Context, userID uint, event Event) {
	if n.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Debugf("notify marshal failed for user %d: %v", userID, err)
		return
	}
	if err := n.events.Publish(ctx, userID, payload); err != nil {
		logger.Debugf("notify publish failed for user %d: %v", userID, err)
	}
}
