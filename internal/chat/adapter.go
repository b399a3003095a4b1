// Package chat bridges the ticket pipeline to chat platforms. The platform
// integration sits behind a narrow adapter so the pipeline never depends on a
// concrete transport.
package chat

import (
	"context"
	"time"
)

// PayloadKind discriminates inbound message payloads.
type PayloadKind string

const (
	PayloadText  PayloadKind = "text"
	PayloadAudio PayloadKind = "audio"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management and message
// sending/receiving for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message. A non-empty UserRef targets the
	// submitting user's direct channel; otherwise ChannelID is used.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform  string      // e.g. "discord"
	ChannelID string      // platform-specific channel identifier
	UserRef   string      // opaque identifier of the submitting user
	UserName  string      // human-readable username
	Kind      PayloadKind // text or audio
	Text      string      // raw message text (empty for audio)
	AudioURL  string      // audio reference (set when Kind is audio)

	// Continuation marks a follow-up in an existing thread; long
	// continuations are truncated tail-first before classification.
	Continuation bool

	Timestamp time.Time
}

// OutboundMessage represents a notification to be sent to the platform.
type OutboundMessage struct {
	ChannelID string
	UserRef   string
	Text      string
}
