package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// PublisherConfig holds NATS connection settings for the feed publisher.
type PublisherConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration // how long envelopes are retained
}

// DefaultPublisherConfig returns default publisher configuration.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        time.Hour,
	}
}

// Publisher pushes feed envelopes onto the JetStream stream.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewPublisher connects to NATS and ensures the feed stream exists.
func NewPublisher(ctx context.Context, config PublisherConfig) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "bankrun state store change feed",
		Subjects:    []string{AllSubjects},
		MaxAge:      config.MaxAge,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure feed stream: %w", err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Publish pushes one envelope. At-least-once: callers may publish the same
// change more than once and subscribers must tolerate it.
func (p *Publisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if _, err := p.js.Publish(ctx, env.Subject(), data); err != nil {
		return fmt.Errorf("publish envelope: %w", err)
	}

	log.Debug().
		Str("subject", env.Subject()).
		Str("table", env.Table).
		Str("kind", string(env.Kind)).
		Msg("published feed envelope")
	return nil
}

// Conn exposes the underlying NATS connection for components that share it.
func (p *Publisher) Conn() *nats.Conn {
	return p.nc
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
