package nrod

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
)

const (
	TDTopic   = "/topic/TD_ALL_SIG_AREA"
	VSTPTopic = "/topic/VSTP_ALL"
)

// TDClient forwards train describer berth steps onto the train events queue
type TDClient struct {
	Subscriber *railutils.StompSubscriber
	Publisher  railutils.Publisher

	// Only these TD areas are forwarded, all when empty
	Areas []string
}

func (c *TDClient) Run(ctx context.Context) error {
	c.Subscriber.Handle = c.HandleMessages

	return c.Subscriber.Run(ctx)
}

func (c *TDClient) HandleMessages(body []byte) {
	events, err := ParseTDMessages(body, c.Areas)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode TD messages")
		return
	}

	if _, err := railutils.PublishAll(c.Publisher, events); err != nil {
		log.Error().Err(err).Msg("Failed to publish TD events")
	}
}

// VSTPClient forwards very short term plan schedules onto the train events queue
type VSTPClient struct {
	Subscriber *railutils.StompSubscriber
	Publisher  railutils.Publisher
	Stations   railutils.StationLookup

	Now func() time.Time
}

func (c *VSTPClient) Run(ctx context.Context) error {
	c.Subscriber.Handle = func(body []byte) {
		c.HandleMessage(ctx, body)
	}

	return c.Subscriber.Run(ctx)
}

func (c *VSTPClient) HandleMessage(ctx context.Context, body []byte) {
	message, err := ParseVSTPMessage(body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode VSTP message")
		return
	}

	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	events := message.Events(ctx, c.Stations, now)

	published, err := railutils.PublishAll(c.Publisher, events)
	if err != nil {
		log.Error().Err(err).Msg("Failed to publish VSTP schedule")
	}

	if published > 0 {
		log.Info().
			Str("trainuid", events[0].TrainUID).
			Str("headcode", events[0].Headcode).
			Int("days", published).
			Msg("Published VSTP schedule")
	}
}
