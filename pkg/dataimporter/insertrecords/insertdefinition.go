package insertrecords

import (
	"context"
	"fmt"

	"github.com/travigo/trainstatus/pkg/database"
	"github.com/travigo/trainstatus/pkg/util"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var allowedCollections = []string{database.StationsCollection, database.RoutesCollection}

// InsertDefinition is a hand maintained record, used for stations CORPUS gets wrong and standing routes
type InsertDefinition struct {
	Collection string                 `yaml:"Collection"`
	Match      map[string]string      `yaml:"Match"`
	Data       map[string]interface{} `yaml:"Data"`
}

func (i *InsertDefinition) Validate() error {
	if !util.ContainsString(allowedCollections, i.Collection) {
		return fmt.Errorf("collection %q cannot take insert records", i.Collection)
	}
	if len(i.Match) == 0 {
		return fmt.Errorf("insert record for %s has no match", i.Collection)
	}
	if len(i.Data) == 0 {
		return fmt.Errorf("insert record for %s has no data", i.Collection)
	}

	return nil
}

func (i *InsertDefinition) Upsert(ctx context.Context) error {
	collection := database.GetCollection(i.Collection)

	query := bson.M{}
	for key, value := range i.Match {
		query[key] = value
	}

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, query, bson.M{"$set": i.Data}, opts)

	return err
}
