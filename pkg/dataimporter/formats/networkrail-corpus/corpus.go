package networkrailcorpus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bulkWriteSize = 1000

type Corpus struct {
	TiplocData []TiplocData `json:"TIPLOCDATA"`
}

type TiplocData struct {
	NLC        int
	STANOX     string
	TIPLOC     string
	ThreeAlpha string `json:"3ALPHA"`
	UIC        string
	NLCDESC    string
	NLCDESC16  string
}

// Stations converts the TIPLOC records into stations. Records without a TIPLOC are skipped.
func (c *Corpus) Stations(now time.Time) []*ctdf.Station {
	var stations []*ctdf.Station
	seen := map[string]bool{}

	for _, tiplocData := range c.TiplocData {
		tiploc := strings.ToUpper(strings.TrimSpace(tiplocData.TIPLOC))
		if tiploc == "" || seen[tiploc] {
			continue
		}
		seen[tiploc] = true

		name := strings.TrimSpace(tiplocData.NLCDESC)
		if name == "" {
			name = strings.TrimSpace(tiplocData.NLCDESC16)
		}

		station := &ctdf.Station{
			PrimaryIdentifier:    fmt.Sprintf(ctdf.StationIDFormat, tiploc),
			Tiploc:               tiploc,
			Stanox:               strings.TrimSpace(tiplocData.STANOX),
			CRS:                  strings.ToUpper(strings.TrimSpace(tiplocData.ThreeAlpha)),
			PrimaryName:          name,
			ModificationDateTime: now,
		}
		if tiplocData.NLC != 0 {
			station.NLC = strconv.Itoa(tiplocData.NLC)
		}

		stations = append(stations, station)
	}

	return stations
}

// Import upserts every station into the stations collection
func (c *Corpus) Import(ctx context.Context) (int, error) {
	stationsCollection := database.GetCollection(database.StationsCollection)
	stations := c.Stations(time.Now())

	var updateOperations []mongo.WriteModel
	written := 0

	flush := func() error {
		if len(updateOperations) == 0 {
			return nil
		}

		_, err := stationsCollection.BulkWrite(ctx, updateOperations, &options.BulkWriteOptions{})
		if err != nil {
			return err
		}

		written += len(updateOperations)
		updateOperations = nil

		log.Debug().Int("written", written).Msg("Bulk wrote stations")
		return nil
	}

	for _, station := range stations {
		bsonRep, err := bson.Marshal(bson.M{"$set": station})
		if err != nil {
			return written, err
		}

		updateModel := mongo.NewUpdateOneModel()
		updateModel.SetFilter(bson.M{"primaryidentifier": station.PrimaryIdentifier})
		updateModel.SetUpdate(bsonRep)
		updateModel.SetUpsert(true)

		updateOperations = append(updateOperations, updateModel)

		if len(updateOperations) >= bulkWriteSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}

	if err := flush(); err != nil {
		return written, err
	}

	return written, nil
}
