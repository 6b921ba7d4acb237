// Package activity aggregates live counters from the realtime event bus.
// It is a passive subscriber: the fanout path never depends on it.
package activity

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/teamgrid/teamgrid/internal/pubsub"
	"github.com/teamgrid/teamgrid/internal/realtime"
)

// Snapshot is a point-in-time view of the counters, reported by the health
// endpoint.
type Snapshot struct {
	MessagesPersisted    int64 `json:"messagesPersisted"`
	MessagesDeleted      int64 `json:"messagesDeleted"`
	NotificationsCreated int64 `json:"notificationsCreated"`
	PresenceChanges      int64 `json:"presenceChanges"`
}

// Tracker counts realtime events observed on the bus since process start.
type Tracker struct {
	messages      atomic.Int64
	deletes       atomic.Int64
	notifications atomic.Int64
	presence      atomic.Int64
	logger        *slog.Logger
}

// NewTracker creates an idle tracker; call Start to begin consuming.
func NewTracker() *Tracker {
	return &Tracker{
		logger: slog.Default().With("service", "activity_tracker"),
	}
}

// Start subscribes the tracker to the realtime bus topics. Subscriptions run
// until the context is canceled.
func (t *Tracker) Start(ctx context.Context, subscriber pubsub.Subscriber) error {
	subscriptions := map[string]*atomic.Int64{
		realtime.TopicMessagePersisted:    &t.messages,
		realtime.TopicMessageDeleted:      &t.deletes,
		realtime.TopicNotificationCreated: &t.notifications,
		realtime.TopicPresenceChanged:     &t.presence,
	}

	for topic, counter := range subscriptions {
		counter := counter
		if err := subscriber.Subscribe(ctx, topic, func(ctx context.Context, msg pubsub.Message) error {
			counter.Add(1)
			return nil
		}); err != nil {
			return err
		}
	}

	t.logger.Info("Activity tracker started")
	return nil
}

// Snapshot returns the current counter values.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		MessagesPersisted:    t.messages.Load(),
		MessagesDeleted:      t.deletes.Load(),
		NotificationsCreated: t.notifications.Load(),
		PresenceChanges:      t.presence.Load(),
	}
}
