package events

import "context"

// Publisher accepts board events for fan-out. Publish must not block the
// caller on delivery: implementations queue and return.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Subscriber is the client side of the realtime channel
type Subscriber interface {
	// Connect establishes the connection to the server
	Connect(ctx context.Context) error

	// Join starts receiving events for a board
	Join(boardID int) error

	// Leave stops receiving events for a board
	Leave(boardID int) error

	// Listen returns the stream of events, reconnecting as needed
	Listen(ctx context.Context) (<-chan Event, error)

	// Close closes the connection and stops all goroutines
	Close() error
}

// Ensure Client implements Subscriber
var _ Subscriber = (*Client)(nil)

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, event Event)

// Publish calls f
func (f PublisherFunc) Publish(ctx context.Context, event Event) { f(ctx, event) }

// Discard is a Publisher that drops every event
var Discard Publisher = PublisherFunc(func(context.Context, Event) {})
