package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Subscription delivers one game's envelopes onto a channel until
// Unsubscribe is called. Callers must unsubscribe to stop delivery.
type Subscription struct {
	C      <-chan Envelope
	stop   func()
	gameID uuid.UUID
}

// NewSubscription wraps an externally produced envelope channel, for sources
// that are not JetStream consumers (such as a WebSocket relay).
func NewSubscription(gameID uuid.UUID, ch <-chan Envelope, stop func()) *Subscription {
	return &Subscription{C: ch, gameID: gameID, stop: stop}
}

// Unsubscribe stops delivery and releases the consumer.
func (s *Subscription) Unsubscribe() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	log.Debug().Str("game_id", s.gameID.String()).Msg("feed subscription released")
}

// Subscriber creates per-game subscriptions over the feed stream.
type Subscriber struct {
	js jetstream.JetStream
}

// NewSubscriber wraps an existing NATS connection.
func NewSubscriber(nc *nats.Conn) (*Subscriber, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &Subscriber{js: js}, nil
}

// Subscribe starts delivering every change of one game onto the returned
// subscription's channel. The consumer is ephemeral: each viewer gets its own
// cursor and a slow viewer only ever delays itself.
func (s *Subscriber) Subscribe(ctx context.Context, gameID uuid.UUID) (*Subscription, error) {
	return s.subscribe(ctx, gameID, GameSubjectFilter(gameID))
}

// SubscribeAll delivers every change of every game. Used by the host
// supervisor to notice newly created and ended games.
func (s *Subscriber) SubscribeAll(ctx context.Context) (*Subscription, error) {
	return s.subscribe(ctx, uuid.Nil, AllSubjects)
}

func (s *Subscriber) subscribe(ctx context.Context, gameID uuid.UUID, filter string) (*Subscription, error) {
	stream, err := s.js.Stream(ctx, StreamName)
	if err != nil {
		return nil, fmt.Errorf("get feed stream: %w", err)
	}

	consumer, err := stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: filter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create feed consumer: %w", err)
	}

	ch := make(chan Envelope, 64)
	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to unmarshal feed envelope")
			msg.Ack()
			return
		}

		select {
		case ch <- env:
			msg.Ack()
		default:
			// Viewer is not draining; drop and let its next tick refetch.
			log.Warn().Str("game_id", gameID.String()).Msg("feed channel full, dropping envelope")
			msg.Ack()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("start feed consumer: %w", err)
	}

	log.Info().Str("game_id", gameID.String()).Msg("subscribed to feed")

	return &Subscription{
		C:      ch,
		gameID: gameID,
		stop:   consumeCtx.Stop,
	}, nil
}
