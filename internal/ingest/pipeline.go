// Package ingest orchestrates the path from an inbound chat message to a
// stored ticket: transcribe if audio, classify, persist, notify.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/classify"
	"github.com/spec-kit/helphub/internal/domain"
	"github.com/spec-kit/helphub/internal/events"
	"github.com/spec-kit/helphub/internal/observability"
	"github.com/spec-kit/helphub/internal/store"
	"github.com/spec-kit/helphub/internal/transcribe"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// PayloadKind discriminates message payloads.
type PayloadKind string

const (
	PayloadText  PayloadKind = "text"
	PayloadAudio PayloadKind = "audio"
)

// Message is an inbound unit of work for the pipeline.
type Message struct {
	UserRef      string
	Kind         PayloadKind
	Text         string
	AudioURL     string
	Continuation bool
}

// Pipeline turns inbound messages into stored tickets. Steps run strictly in
// sequence per message; classification degrades to fallback values rather
// than blocking ticket durability, while transcription failure drops the
// message with a user-visible notice.
type Pipeline struct {
	transcriber transcribe.Transcriber
	classifier  classify.Classifier
	tickets     store.TicketStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// Dependencies bundles pipeline collaborators.
type Dependencies struct {
	Transcriber transcribe.Transcriber
	Classifier  classify.Classifier
	Tickets     store.TicketStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewPipeline constructs the ingestion pipeline.
func NewPipeline(deps Dependencies) *Pipeline {
	return &Pipeline{
		transcriber: deps.Transcriber,
		classifier:  deps.Classifier,
		tickets:     deps.Tickets,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// Ingest processes one inbound message and yields exactly one ticket unless
// transcription fails, in which case no ticket is created and the sender is
// notified of the failure.
func (p *Pipeline) Ingest(ctx context.Context, msg Message) (*domain.Ticket, error) {
	if strings.TrimSpace(msg.UserRef) == "" {
		return nil, apperrors.NewValidationError("user_ref required", nil)
	}

	transcript := msg.Text
	if msg.Kind == PayloadAudio {
		text, err := p.transcriber.Transcribe(ctx, msg.AudioURL)
		if err != nil {
			p.metrics.RecordIngest("dropped")
			p.logger.Warn("transcription failed; message dropped",
				zap.String("user_ref", msg.UserRef), zap.Error(err))
			p.publish(ctx, events.Event{
				Type:    events.EventIngestFailed,
				UserRef: msg.UserRef,
				Payload: events.IngestFailedPayload{Reason: apperrors.CodeTranscriptionFailed},
			})
			return nil, err
		}
		transcript = text
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, apperrors.NewValidationError("empty message payload", nil)
	}

	result := p.classifier.Classify(ctx, transcript, msg.Continuation)
	if result.Fallback {
		p.logger.Info("classification fallback applied",
			zap.String("user_ref", msg.UserRef), zap.String("reason", result.Reason))
	}

	ticket, err := p.tickets.Create(ctx, store.TicketDraft{
		UserRef:   msg.UserRef,
		RawInput:  transcript,
		Summary:   result.Summary,
		Category:  result.Category,
		Priority:  result.Priority,
		Sentiment: result.Sentiment,
	})
	if err != nil {
		p.metrics.RecordIngest("dropped")
		return nil, err
	}

	if result.Fallback {
		p.metrics.RecordIngest("created_fallback")
	} else {
		p.metrics.RecordIngest("created")
	}
	p.logger.Info("ticket created",
		zap.String("id", ticket.ID),
		zap.String("category", string(ticket.Category)),
		zap.String("priority", string(ticket.Priority)),
		zap.Bool("fallback", result.Fallback))

	p.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		UserRef:  ticket.UserRef,
		Payload: events.TicketCreatedPayload{
			Summary:             ticket.Summary,
			Category:            ticket.Category,
			Priority:            ticket.Priority,
			Sentiment:           ticket.Sentiment,
			SuggestedResolution: result.SuggestedResolution,
			AutoResolvable:      result.AutoResolvable,
			UsedFallback:        result.Fallback,
		},
	})
	return ticket, nil
}

func (p *Pipeline) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = p.dispatcher.Publish(ctx, event)
}
