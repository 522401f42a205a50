package mq

import (
	"context"
	"time"
)

// Poller is a pull-style consumer bound to one topic and consumer group.
type Poller interface {
	// Poll blocks until a message arrives or timeout elapses.
	// A timeout returns (nil, nil).
	Poll(ctx context.Context, timeout time.Duration) (*Message, error)

	// Commit marks the message as processed for the consumer group.
	Commit(ctx context.Context, message *Message) error

	// Close releases the underlying connection.
	Close() error
}

// Producer defines the interface for publishing messages
type Producer interface {
	// Publish publishes a message to the specified topic
	Publish(ctx context.Context, topic string, message *Message) error

	// PublishBatch publishes multiple messages in a batch
	PublishBatch(ctx context.Context, topic string, messages []*Message) error

	Close() error
}

// Message represents a message in the queue
type Message struct {
	// ID is the message key, empty when the producer did not set one
	ID string `json:"id"`

	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`

	// Body is the message payload
	Body []byte `json:"body"`

	// Headers contains metadata about the message
	Headers map[string]string `json:"headers"`

	// Timestamp is when the message was created
	Timestamp time.Time `json:"timestamp"`

	// raw is the broker-native message kept for commit.
	raw any
}

// NewMessage creates a new message with the given body
func NewMessage(body []byte) *Message {
	return &Message{
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// SetHeader sets a header value
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// GetHeader retrieves a header value
func (m *Message) GetHeader(key string) (string, bool) {
	if m.Headers == nil {
		return "", false
	}
	val, ok := m.Headers[key]
	return val, ok
}
