package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ListenerConfig holds configuration for the Postgres notification listener.
type ListenerConfig struct {
	DatabaseURL   string
	NotifyChannel string
	PingInterval  time.Duration
}

// DefaultListenerConfig returns default listener configuration. The notify
// channel matches the trigger installed by the migrations.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel: "bankrun_row_changes",
		PingInterval:  90 * time.Second,
	}
}

// EnvelopePublisher is the downstream the listener forwards envelopes to.
type EnvelopePublisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Listener bridges Postgres LISTEN/NOTIFY to the JetStream feed. Row-change
// triggers in the schema emit complete envelopes as notification payloads, so
// no table polling is needed; a dropped notification only delays viewers
// until their next refetch.
type Listener struct {
	listener  *pq.Listener
	publisher EnvelopePublisher
	cfg       ListenerConfig
}

func NewListener(publisher EnvelopePublisher, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for row changes")

	return &Listener{
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("feed listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was lost and
				// re-established; nothing to forward.
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle row change notification")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}

func (l *Listener) handleNotification(ctx context.Context, payload string) error {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return fmt.Errorf("invalid envelope in notification: %w", err)
	}
	env.Timestamp = time.Now()

	if err := l.publisher.Publish(ctx, env); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}

	log.Debug().
		Str("table", env.Table).
		Str("kind", string(env.Kind)).
		Str("game_id", env.GameID.String()).
		Msg("forwarded row change")
	return nil
}
