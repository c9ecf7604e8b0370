package railutils

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-stomp/stomp/v3"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/rs/zerolog/log"
)

// StompSubscriber owns one feed connection. It reconnects with backoff whenever the connection or
// subscription drops and hands every message body to Handle.
type StompSubscriber struct {
	Address     string
	Username    string
	Password    string
	Destination string

	// Durable subscription name, empty for a plain subscription
	SubscriptionName string

	Handle func(body []byte)
}

func (s *StompSubscriber) Run(ctx context.Context) error {
	reconnectBackoff := backoff.NewExponentialBackOff()
	reconnectBackoff.MaxElapsedTime = 0

	return backoff.RetryNotify(func() error {
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		return err
	}, backoff.WithContext(reconnectBackoff, ctx), func(err error, wait time.Duration) {
		log.Error().Err(err).Str("destination", s.Destination).Str("wait", wait.String()).Msg("Feed connection lost, reconnecting")
	})
}

func (s *StompSubscriber) consume(ctx context.Context) error {
	connectionOptions := []func(*stomp.Conn) error{
		stomp.ConnOpt.Login(s.Username, s.Password),
		stomp.ConnOpt.HeartBeat(15*time.Second, 15*time.Second),
	}
	if s.SubscriptionName != "" {
		connectionOptions = append(connectionOptions, stomp.ConnOpt.Header("client-id", s.SubscriptionName))
	}

	conn, err := stomp.Dial("tcp", s.Address, connectionOptions...)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	var subscriptionOptions []func(*frame.Frame) error
	if s.SubscriptionName != "" {
		subscriptionOptions = append(subscriptionOptions, stomp.SubscribeOpt.Header("activemq.subscriptionName", s.SubscriptionName))
	}

	subscription, err := conn.Subscribe(s.Destination, stomp.AckAuto, subscriptionOptions...)
	if err != nil {
		return err
	}

	log.Info().Str("destination", s.Destination).Msg("Subscribed to feed")

	for {
		select {
		case <-ctx.Done():
			subscription.Unsubscribe()
			return ctx.Err()
		case message, ok := <-subscription.C:
			if !ok {
				return errors.New("subscription closed")
			}
			if message.Err != nil {
				return message.Err
			}

			s.Handle(message.Body)
		}
	}
}
