package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/travigo/trainstatus/pkg/elastic_client"
)

const identifyEventsIndex = "train-identify-events-*"

type IdentificationRateStats struct {
	Sources map[string]*IdentificationRateStatsSource
}

// IdentificationRateStatsSource is the share of a feed's events that matched a train already known,
// rather than creating a new one
type IdentificationRateStatsSource struct {
	LastDayRate   float64
	LastWeekRate  float64
	LastMonthRate float64

	LastDayCount int

	Rating string
}

type identificationRateESResponse struct {
	Error map[string]interface{}

	Aggregations struct {
		Sources struct {
			Buckets []struct {
				Key      string
				DocCount int `json:"doc_count"`
				Created  struct {
					Buckets []struct {
						Key         int
						DocCount    int    `json:"doc_count"`
						KeyAsString string `json:"key_as_string"`
					}
				}
			}
		}
	}
}

type rateWindow struct {
	from string
	set  func(source *IdentificationRateStatsSource, rate float64, count int)
}

var rateWindows = []rateWindow{
	{from: "now-1d/d", set: func(s *IdentificationRateStatsSource, rate float64, count int) {
		s.LastDayRate = rate
		s.LastDayCount = count
	}},
	{from: "now-7d/d", set: func(s *IdentificationRateStatsSource, rate float64, _ int) { s.LastWeekRate = rate }},
	{from: "now-31d/d", set: func(s *IdentificationRateStatsSource, rate float64, _ int) { s.LastMonthRate = rate }},
}

func identificationRateQuery(from string, sources []string) map[string]interface{} {
	must := []map[string]interface{}{
		{
			"range": map[string]interface{}{
				"Timestamp": map[string]interface{}{
					"gte": from,
					"lt":  "now/d",
				},
			},
		},
	}

	if len(sources) != 0 {
		var sourceQueries []map[string]interface{}
		for _, source := range sources {
			sourceQueries = append(sourceQueries, map[string]interface{}{
				"match": map[string]interface{}{
					"Source.keyword": source,
				},
			})
		}

		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": sourceQueries,
			},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
			},
		},
		"aggs": map[string]interface{}{
			"sources": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "Source.keyword",
					"size":  100,
				},
				"aggs": map[string]interface{}{
					"created": map[string]interface{}{
						"terms": map[string]interface{}{
							"field": "Created",
						},
					},
				},
			},
		},
	}
}

func searchIdentificationRate(ctx context.Context, from string, sources []string) (*identificationRateESResponse, error) {
	if elastic_client.Client == nil {
		return nil, fmt.Errorf("elasticsearch is not connected")
	}

	var queryBytes bytes.Buffer
	if err := json.NewEncoder(&queryBytes).Encode(identificationRateQuery(from, sources)); err != nil {
		return nil, err
	}

	res, err := elastic_client.Client.Search(
		elastic_client.Client.Search.WithContext(ctx),
		elastic_client.Client.Search.WithIndex(identifyEventsIndex),
		elastic_client.Client.Search.WithBody(&queryBytes),
		elastic_client.Client.Search.WithSize(0),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	return decodeIdentificationRate(res.Body)
}

func decodeIdentificationRate(body io.Reader) (*identificationRateESResponse, error) {
	var response identificationRateESResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}

	if response.Error != nil {
		return nil, fmt.Errorf("elasticsearch error: %v", response.Error["reason"])
	}

	return &response, nil
}

func (r *IdentificationRateStats) apply(response *identificationRateESResponse, window rateWindow) {
	for _, source := range response.Aggregations.Sources.Buckets {
		if r.Sources[source.Key] == nil {
			r.Sources[source.Key] = &IdentificationRateStatsSource{}
		}
		if source.DocCount == 0 {
			continue
		}

		matchedCount := 0
		for _, subAggBucket := range source.Created.Buckets {
			if subAggBucket.KeyAsString == "false" {
				matchedCount = subAggBucket.DocCount
			}
		}

		window.set(r.Sources[source.Key], float64(matchedCount)/float64(source.DocCount), source.DocCount)
	}
}

func (r *IdentificationRateStats) rate() {
	for _, source := range r.Sources {
		switch {
		case source.LastDayRate >= 0.95:
			source.Rating = "PERFECT"
		case source.LastDayRate >= 0.75:
			source.Rating = "EXCELLENT"
		case source.LastDayRate <= 0.5 && source.LastWeekRate >= 0.75:
			source.Rating = "TEMPORARY-ISSUES"
		case source.LastDayRate >= 0.6:
			source.Rating = "GOOD"
		default:
			source.Rating = "POOR"
		}
	}
}

// GetIdentificationRateStats reports how often each feed's events matched an existing train over the
// last day, week and month
func GetIdentificationRateStats(ctx context.Context, sources []string) (IdentificationRateStats, error) {
	rateStats := IdentificationRateStats{
		Sources: map[string]*IdentificationRateStatsSource{},
	}

	for _, window := range rateWindows {
		response, err := searchIdentificationRate(ctx, window.from, sources)
		if err != nil {
			return rateStats, err
		}

		rateStats.apply(response, window)
	}

	rateStats.rate()

	return rateStats, nil
}
