package darwin

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
)

// StompClient forwards Darwin push port updates onto the train events queue
type StompClient struct {
	Subscriber *railutils.StompSubscriber
	Publisher  railutils.Publisher
	Stations   railutils.StationLookup
}

func (s *StompClient) Run(ctx context.Context) error {
	s.Subscriber.Handle = func(body []byte) {
		s.HandleMessage(ctx, body)
	}

	return s.Subscriber.Run(ctx)
}

func (s *StompClient) HandleMessage(ctx context.Context, body []byte) {
	pushPortData, err := ParseMessage(body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse push port data xml")
		return
	}

	events := pushPortData.Events(ctx, s.Stations)

	if _, err := railutils.PublishAll(s.Publisher, events); err != nil {
		log.Error().Err(err).Msg("Failed to publish Darwin events")
	}

	log.Debug().
		Int("schedules", len(pushPortData.Schedules)).
		Int("statuses", len(pushPortData.TrainStatuses)).
		Int("events", len(events)).
		Msg("Processed push port update")
}
