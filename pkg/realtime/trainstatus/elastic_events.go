package trainstatus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/elastic_client"
)

type IdentifyElasticEvent struct {
	Timestamp time.Time

	Source  string
	Method  string
	Created bool

	TrainID  string
	Headcode string
	CRS      string
}

// IndexIdentifyEvent records an identification outcome in the weekly identify events index
func IndexIdentifyEvent(event IdentifyElasticEvent) {
	yearNumber, weekNumber := event.Timestamp.ISOWeek()
	indexName := fmt.Sprintf("train-identify-events-%d-%d", yearNumber, weekNumber)

	document, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal identify event")
		return
	}

	elastic_client.IndexRequest(indexName, bytes.NewReader(document))
}
