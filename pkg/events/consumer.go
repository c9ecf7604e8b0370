package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/elastic_client"
)

type queuedEvent struct {
	Type      ctdf.EventType
	Timestamp time.Time
	Body      *ctdf.TrainEventBody
}

type statusElasticEvent struct {
	Timestamp time.Time
	Type      ctdf.EventType

	TrainID         string
	Headcode        string
	ServiceDate     string
	VariationStatus ctdf.VariationStatus `json:",omitempty"`
	DeltaMinutes    int                  `json:",omitempty"`

	Title   string
	Message string
}

type EventsBatchConsumer struct {
	// Index receives each decoded event, defaults to Elasticsearch
	Index func(indexName string, event statusElasticEvent)
}

func NewEventsBatchConsumer() *EventsBatchConsumer {
	return &EventsBatchConsumer{
		Index: func(indexName string, event statusElasticEvent) {
			document, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Msg("Failed to marshal status event")
				return
			}

			elastic_client.IndexRequest(indexName, bytes.NewReader(document))
		},
	}
}

func (c *EventsBatchConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		event, err := decodeEvent(delivery.Payload())
		if err != nil {
			log.Error().Err(err).Msg("Failed to decode status event")

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject status event")
			}
			continue
		}

		c.handle(event)

		if err := delivery.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack status event")
		}
	}
}

func decodeEvent(payload string) (*ctdf.Event, error) {
	var queued queuedEvent
	if err := json.Unmarshal([]byte(payload), &queued); err != nil {
		return nil, err
	}

	if queued.Body == nil || queued.Body.Train == nil {
		return nil, fmt.Errorf("event %s has no train", queued.Type)
	}

	return &ctdf.Event{
		Type:      queued.Type,
		Timestamp: queued.Timestamp,
		Body:      queued.Body,
	}, nil
}

func (c *EventsBatchConsumer) handle(event *ctdf.Event) {
	body := event.Body.(*ctdf.TrainEventBody)
	notification := event.GetNotificationData()

	log.Info().
		Str("type", string(event.Type)).
		Str("trainid", body.Train.PrimaryIdentifier).
		Str("headcode", body.Train.Headcode).
		Msg(notification.Message)

	statusEvent := statusElasticEvent{
		Timestamp:   event.Timestamp,
		Type:        event.Type,
		TrainID:     body.Train.PrimaryIdentifier,
		Headcode:    body.Train.Headcode,
		ServiceDate: body.Train.ServiceDate,
		Title:       notification.Title,
		Message:     notification.Message,
	}
	if body.Train.LastMovement != nil {
		statusEvent.VariationStatus = body.Train.LastMovement.VariationStatus
		statusEvent.DeltaMinutes = body.Train.LastMovement.DeltaMinutes
	}

	yearNumber, weekNumber := event.Timestamp.ISOWeek()
	c.Index(fmt.Sprintf("train-status-events-%d-%d", yearNumber, weekNumber), statusEvent)
}
