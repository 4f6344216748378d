// Package events publishes post lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/lib/logger/sl"
	"inkwell/internal/metrics"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	PostCreated  = "post.created"
	PostUpdated  = "post.updated"
	PostDeleted  = "post.deleted"
	PostFeatured = "post.featured"
)

type Event struct {
	Type       string     `json:"type"`
	PostID     uuid.UUID  `json:"post_id"`
	ActorID    uuid.UUID  `json:"actor_id"`
	MediaID    *uuid.UUID `json:"media_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

type msgConn interface {
	PublishMsg(msg *nats.Msg) error
	Drain() error
}

type NATSPublisher struct {
	log    *slog.Logger
	conn   msgConn
	prefix string
}

func NewNATSPublisher(log *slog.Logger, url, subjectPrefix string) (*NATSPublisher, error) {
	const op = "events.NewNATSPublisher"

	nc, err := nats.Connect(url,
		nats.Name("inkwell"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return newNATSPublisher(log, nc, subjectPrefix), nil
}

func newNATSPublisher(log *slog.Logger, conn msgConn, subjectPrefix string) *NATSPublisher {
	return &NATSPublisher{
		log:    log,
		conn:   conn,
		prefix: subjectPrefix,
	}
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	const op = "events.Publish"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := &nats.Msg{
		Subject: p.subject(event.Type),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Inkwell-Event", event.Type)
	msg.Header.Set("Inkwell-Post", event.PostID.String())

	if err := p.conn.PublishMsg(msg); err != nil {
		metrics.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.EventsPublished.WithLabelValues(event.Type, "ok").Inc()
	p.log.Debug("event published", slog.String("subject", msg.Subject), slog.String("post_id", event.PostID.String()))

	return nil
}

func (p *NATSPublisher) subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn("failed to drain nats connection", sl.Err(err))
	}
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() {}
