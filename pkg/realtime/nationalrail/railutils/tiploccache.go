package railutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/database"
	"go.mongodb.org/mongo-driver/mongo"
)

const missingStation = "N/A"

// StationLookup maps a TIPLOC onto the CRS code passengers know the station by
type StationLookup interface {
	CRS(ctx context.Context, tiploc string) string
}

type TiplocCache struct {
	Cache *cache.Cache[string]

	// Lookup loads a station on a cache miss, nil station means the TIPLOC is not a station
	Lookup func(ctx context.Context, tiploc string) (*ctdf.Station, error)
}

func NewTiplocCache(client *redis.Client) *TiplocCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(90*time.Minute))

	return &TiplocCache{
		Cache:  cache.New[string](redisStore),
		Lookup: lookupStation,
	}
}

func lookupStation(ctx context.Context, tiploc string) (*ctdf.Station, error) {
	var station *ctdf.Station

	query := ctdf.QueryStation{Tiploc: tiploc}
	err := database.GetCollection(database.StationsCollection).FindOne(ctx, query.ToBson()).Decode(&station)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	return station, err
}

func (t *TiplocCache) Get(ctx context.Context, tiploc string) *ctdf.Station {
	cacheKey := fmt.Sprintf(ctdf.StationIDFormat, tiploc)

	cachedValue, err := t.Cache.Get(ctx, cacheKey)
	if err == nil {
		if cachedValue == missingStation {
			return nil
		}

		var station *ctdf.Station
		if err := json.Unmarshal([]byte(cachedValue), &station); err == nil {
			return station
		}
	}

	station, err := t.Lookup(ctx, tiploc)
	if err != nil {
		// Not cached, the next message will try again
		log.Error().Err(err).Str("tiploc", tiploc).Msg("Failed to look up station")
		return nil
	}

	cacheValue := missingStation
	if station != nil {
		stationJSON, err := json.Marshal(station)
		if err != nil {
			return station
		}
		cacheValue = string(stationJSON)
	}

	if err := t.Cache.Set(ctx, cacheKey, cacheValue); err != nil {
		log.Error().Err(err).Str("tiploc", tiploc).Msg("Failed to cache station")
	}

	return station
}

func (t *TiplocCache) CRS(ctx context.Context, tiploc string) string {
	if tiploc == "" {
		return ""
	}

	station := t.Get(ctx, tiploc)
	if station == nil {
		return ""
	}

	return station.CRS
}
