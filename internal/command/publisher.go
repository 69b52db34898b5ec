package command

import "context"

// EventPublisher is satisfied by events.Publisher and events.NopPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}
