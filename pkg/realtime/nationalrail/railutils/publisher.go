package railutils

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/travigo/trainstatus/pkg/ctdf"
)

// Publisher hands normalized train events to the status engine
type Publisher interface {
	Publish(event ctdf.TrainEvent) error
}

type QueuePublisher struct {
	Queue rmq.Queue
}

func (p *QueuePublisher) Publish(event ctdf.TrainEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Queue.PublishBytes(eventBytes)
}

// PublishAll publishes each event, returning the number published and the first error
func PublishAll(publisher Publisher, events []ctdf.TrainEvent) (int, error) {
	for i, event := range events {
		if err := publisher.Publish(event); err != nil {
			return i, err
		}
	}

	return len(events), nil
}
