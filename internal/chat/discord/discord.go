// Package discord implements the chat Adapter for Discord using the Gateway
// WebSocket.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/helphub/internal/chat"
)

const inboundBuffer = 64

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	AddHandler(handler interface{}) func()
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSend(channelID, content, options...)
}
func (r *realSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return r.s.UserChannelCreate(recipientID, options...)
}
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}

// Adapter implements chat.Adapter for Discord via the Gateway WebSocket.
type Adapter struct {
	sess      session
	channelID string // default channel when no user target is given
	botUserID string

	mu        sync.Mutex
	connected bool
	inbound   chan chat.InboundMessage
	removeFn  func()
}

// New creates a Discord adapter from a bot token.
func New(botToken, channelID string) (*Adapter, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord: bot token required")
	}
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	return &Adapter{sess: &realSession{s: s}, channelID: channelID}, nil
}

// Connect opens the gateway connection and resolves the bot's own user id
// for self-message filtering.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected {
		return nil
	}
	readyCh := make(chan string, 1)
	removeReady := a.sess.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if r.User != nil {
			readyCh <- r.User.ID
		}
	})
	defer removeReady()

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	select {
	case id := <-readyCh:
		a.botUserID = id
	case <-time.After(10 * time.Second):
		// Proceed without self-filtering; message handler falls back to
		// skipping bot-authored messages by flag.
	case <-ctx.Done():
		_ = a.sess.Close()
		return ctx.Err()
	}

	a.connected = true
	return nil
}

// Listen registers the message handler and returns the inbound channel.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: Listen called before Connect")
	}
	if a.inbound != nil {
		return a.inbound, nil
	}
	a.inbound = make(chan chat.InboundMessage, inboundBuffer)
	a.removeFn = a.sess.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(m)
	})

	go func() {
		<-ctx.Done()
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.removeFn != nil {
			a.removeFn()
			a.removeFn = nil
		}
		if a.inbound != nil {
			close(a.inbound)
			a.inbound = nil
		}
	}()
	return a.inbound, nil
}

func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == a.botUserID {
		return
	}

	msg := chat.InboundMessage{
		Platform:     "discord",
		ChannelID:    m.ChannelID,
		UserRef:      m.Author.ID,
		UserName:     m.Author.Username,
		Kind:         chat.PayloadText,
		Text:         m.Content,
		Continuation: m.MessageReference != nil,
		Timestamp:    m.Timestamp,
	}
	if audioURL := firstAudioAttachment(m.Attachments); audioURL != "" {
		msg.Kind = chat.PayloadAudio
		msg.AudioURL = audioURL
		msg.Text = ""
	} else if strings.TrimSpace(m.Content) == "" {
		return
	}

	// The send happens under the lock: Close and the Listen shutdown
	// goroutine take the same lock before closing a.inbound, so a message
	// in flight can never hit a closed channel. The send stays non-blocking,
	// so the gateway callback never stalls on slow consumers.
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inbound == nil {
		return
	}
	select {
	case a.inbound <- msg:
	default:
		// Drop rather than block the gateway callback when consumers stall.
	}
}

func firstAudioAttachment(attachments []*discordgo.MessageAttachment) string {
	for _, att := range attachments {
		if att == nil {
			continue
		}
		if strings.HasPrefix(att.ContentType, "audio/") {
			return att.URL
		}
	}
	return ""
}

// Send delivers an outbound message, preferring a direct channel to the
// referenced user.
func (a *Adapter) Send(ctx context.Context, msg chat.OutboundMessage) error {
	channelID := msg.ChannelID
	if msg.UserRef != "" {
		dm, err := a.sess.UserChannelCreate(msg.UserRef)
		if err != nil {
			return fmt.Errorf("discord: open DM channel: %w", err)
		}
		channelID = dm.ID
	}
	if channelID == "" {
		channelID = a.channelID
	}
	if channelID == "" {
		return fmt.Errorf("discord: no target channel")
	}
	if _, err := a.sess.ChannelMessageSend(channelID, msg.Text); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// Close gracefully shuts down the gateway connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil
	}
	a.connected = false
	if a.removeFn != nil {
		a.removeFn()
		a.removeFn = nil
	}
	if a.inbound != nil {
		close(a.inbound)
		a.inbound = nil
	}
	return a.sess.Close()
}
