package events

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/travigo/trainstatus/pkg/ctdf"
)

const EventsQueue = "events-queue"

// QueuePublisher pushes train status notifications onto the events queue
type QueuePublisher struct {
	Queue rmq.Queue
}

func (p *QueuePublisher) Notify(event *ctdf.Event) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Queue.PublishBytes(eventBytes)
}
