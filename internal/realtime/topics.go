package realtime

// Bus topics published by the FanoutRouter. In-process subscribers (activity
// counters, audit logging) consume these without coupling to the router.
const (
	TopicMessagePersisted    = "realtime.message.persisted"
	TopicMessageDeleted      = "realtime.message.deleted"
	TopicNotificationCreated = "realtime.notification.created"
	TopicPresenceChanged     = "realtime.presence.changed"
)
