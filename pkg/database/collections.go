package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TrainsCollection   = "trains"
	RoutesCollection   = "route_definitions"
	StationsCollection = "stations"
)

func createIndexes(ctx context.Context) {
	createTrainsIndexes(ctx)
	createRoutesIndexes(ctx)
	createStationsIndexes(ctx)
}

func createTrainsIndexes(ctx context.Context) {
	trainsCollection := GetCollection(TrainsCollection)

	// The unique identitykeys multikey index is what makes find-or-create atomic across writers. Trains with
	// no keys are left out of it.
	_, err := trainsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "identitykeys", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"identitykeys": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{
				{Key: "servicedate", Value: 1},
				{Key: "headcode", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "serviceid", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "trainuid", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "tdactive", Value: 1},
				{Key: "lasttdtime", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "route.crs", Value: 1},
				{Key: "route.scheduledtime", Value: 1},
			},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createRoutesIndexes(ctx context.Context) {
	routesCollection := GetCollection(RoutesCollection)
	_, err := routesCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createStationsIndexes(ctx context.Context) {
	stationsCollection := GetCollection(StationsCollection)
	_, err := stationsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "tiploc", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "crs", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
