package events

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(topic string, event any) error { return nil }
