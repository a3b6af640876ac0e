package websocket

// EventPublisher pushes profile events to live connections
type EventPublisher interface {
	Publish(profileID int64, event Event)
}

// NoOpPublisher discards events. Services fall back to it when no hub is wired.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(int64, Event) {}
