package publisher

// Message keys used on the event stream
const (
	// KeyDraw carries a newly stored draw
	KeyDraw = "draw"
	// KeyGrid carries a generated grid
	KeyGrid = "grid"
)

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// NoopPublisher discards every message; used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(key string, message []byte) error { return nil }

func (NoopPublisher) TrimStreams() error { return nil }

func (NoopPublisher) Close() error { return nil }
