package trainstatus

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/trainstatus/pkg/ctdf"
)

const TrainEventsQueue = "train-events"

// BatchConsumer feeds queued train events through the engine
type BatchConsumer struct {
	Engine         *Engine
	MaxConcurrency int
}

func NewBatchConsumer(engine *Engine) *BatchConsumer {
	return &BatchConsumer{
		Engine:         engine,
		MaxConcurrency: 16,
	}
}

func (c *BatchConsumer) Consume(batch rmq.Deliveries) {
	p := pool.New().WithMaxGoroutines(c.MaxConcurrency)

	for _, delivery := range batch {
		p.Go(func() {
			c.consumeDelivery(delivery)
		})
	}

	p.Wait()
}

func (c *BatchConsumer) consumeDelivery(delivery rmq.Delivery) {
	var event ctdf.TrainEvent
	if err := json.Unmarshal([]byte(delivery.Payload()), &event); err != nil {
		log.Error().Err(err).Msg("Failed to decode train event")

		if err := delivery.Reject(); err != nil {
			log.Error().Err(err).Msg("Failed to reject train event")
		}
		return
	}

	_, err := c.Engine.Process(context.Background(), event)

	// Events that can never apply are dropped, only exhausted retries go to the rejected list
	if err != nil && !errors.Is(err, ErrMalformedEvent) && !errors.Is(err, ErrArchivedTrain) {
		if err := delivery.Reject(); err != nil {
			log.Error().Err(err).Msg("Failed to reject train event")
		}
		return
	}

	if err := delivery.Ack(); err != nil {
		log.Error().Err(err).Msg("Failed to ack train event")
	}
}
