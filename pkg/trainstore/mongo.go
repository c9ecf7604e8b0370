package trainstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository() *MongoRepository {
	return &MongoRepository{
		collection: database.GetCollection(database.TrainsCollection),
	}
}

func (r *MongoRepository) FindOne(ctx context.Context, filter *ctdf.TrainFilter) (*ctdf.Train, error) {
	var train *ctdf.Train

	opts := options.FindOne().SetSort(bson.D{{Key: "primaryidentifier", Value: 1}})
	err := r.collection.FindOne(ctx, filter.ToBson(), opts).Decode(&train)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, unavailable(err)
	}

	return train, nil
}

func (r *MongoRepository) FindMany(ctx context.Context, filter *ctdf.TrainFilter, fields ...string) ([]*ctdf.Train, error) {
	opts := options.Find().SetSort(bson.D{{Key: "primaryidentifier", Value: 1}})

	if len(fields) > 0 {
		projection := bson.D{{Key: "primaryidentifier", Value: 1}}
		for _, field := range fields {
			field = strings.ToLower(strings.TrimSpace(field))
			if field == "" || field == "primaryidentifier" {
				continue
			}
			projection = append(projection, bson.E{Key: field, Value: 1})
		}
		opts = opts.SetProjection(projection)
	}

	query := bson.M{}
	if filter != nil {
		query = filter.ToBson()
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	var trains []*ctdf.Train
	if err := cursor.All(ctx, &trains); err != nil {
		return nil, unavailable(err)
	}

	return trains, nil
}

func (r *MongoRepository) Upsert(ctx context.Context, train *ctdf.Train) (*ctdf.Train, error) {
	updated := *train
	updated.Version = train.Version + 1

	var result *mongo.UpdateResult
	var err error

	if train.Version == 0 {
		filter := bson.M{"primaryidentifier": train.PrimaryIdentifier, "version": bson.M{"$exists": false}}
		result, err = r.collection.ReplaceOne(ctx, filter, updated, options.Replace().SetUpsert(true))
	} else {
		var document bson.M
		document, err = toDocument(updated)
		if err != nil {
			return nil, err
		}
		// Identity keys only grow through FindOrCreate and ClaimIdentityKeys
		delete(document, "identitykeys")

		filter := bson.M{"primaryidentifier": train.PrimaryIdentifier, "version": train.Version}
		result, err = r.collection.UpdateOne(ctx, filter, bson.M{"$set": document})
	}

	if mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("%w: %s", ErrVersionConflict, train.PrimaryIdentifier)
	} else if err != nil {
		return nil, unavailable(err)
	}

	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return nil, fmt.Errorf("%w: %s at version %d", ErrVersionConflict, train.PrimaryIdentifier, train.Version)
	}

	if train.Version != 0 {
		stored, err := r.FindOne(ctx, &ctdf.TrainFilter{PrimaryIdentifier: train.PrimaryIdentifier})
		if err != nil {
			return nil, err
		}
		updated.IdentityKeys = stored.IdentityKeys
	}

	return &updated, nil
}

func (r *MongoRepository) FindOrCreate(ctx context.Context, identityKeys []string, seed *ctdf.Train) (*ctdf.Train, bool, error) {
	var err error

	// Two racing inserts sharing a key cannot both pass the unique identitykeys index, the loser reads the winner
	for attempt := 0; attempt < 3; attempt++ {
		var owners []*ctdf.Train
		owners, err = r.identityOwners(ctx, identityKeys)
		if err != nil {
			return nil, false, err
		}

		if owner := pickOwner(owners, identityKeys, seed); owner != nil {
			owner.IdentityKeys, err = r.claim(ctx, owner, identityKeys)
			if err != nil {
				return nil, false, err
			}

			return owner, false, nil
		}

		free := freeIdentityKeys(owners, identityKeys)
		if len(free) == 0 {
			return nil, false, fmt.Errorf("%w: %v", ErrIdentityConflict, identityKeys)
		}

		insert := *seed
		insert.IdentityKeys = free
		insert.Version = 1

		_, err = r.collection.InsertOne(ctx, insert)
		if mongo.IsDuplicateKeyError(err) {
			log.Debug().Strs("identitykeys", identityKeys).Msg("Lost train creation race, retrying")
			continue
		} else if err != nil {
			return nil, false, unavailable(err)
		}

		return &insert, true, nil
	}

	return nil, false, fmt.Errorf("%w: creating %v: %w", ErrVersionConflict, identityKeys, err)
}

func (r *MongoRepository) ClaimIdentityKeys(ctx context.Context, primaryIdentifier string, identityKeys []string) ([]string, error) {
	train, err := r.FindOne(ctx, &ctdf.TrainFilter{PrimaryIdentifier: primaryIdentifier})
	if err != nil {
		return nil, err
	}

	return r.claim(ctx, train, identityKeys)
}

func (r *MongoRepository) identityOwners(ctx context.Context, identityKeys []string) ([]*ctdf.Train, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"identitykeys": bson.M{"$in": identityKeys}},
		options.Find().SetSort(bson.D{{Key: "primaryidentifier", Value: 1}}))
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	var owners []*ctdf.Train
	if err := cursor.All(ctx, &owners); err != nil {
		return nil, unavailable(err)
	}

	return owners, nil
}

// claim adds each missing key one at a time so a key another train took in the meantime only skips that key
func (r *MongoRepository) claim(ctx context.Context, train *ctdf.Train, identityKeys []string) ([]string, error) {
	held := append([]string(nil), train.IdentityKeys...)

	for _, key := range identityKeys {
		if train.HoldsIdentityKey(key) {
			continue
		}

		_, err := r.collection.UpdateOne(ctx,
			bson.M{"primaryidentifier": train.PrimaryIdentifier},
			bson.M{"$addToSet": bson.M{"identitykeys": key}},
		)
		if mongo.IsDuplicateKeyError(err) {
			log.Debug().Str("trainid", train.PrimaryIdentifier).Str("identitykey", key).Msg("Identity key held by another train")
			continue
		} else if err != nil {
			return held, unavailable(err)
		}

		held = append(held, key)
	}

	return held, nil
}

func toDocument(train ctdf.Train) (bson.M, error) {
	raw, err := bson.Marshal(train)
	if err != nil {
		return nil, err
	}

	var document bson.M
	if err := bson.Unmarshal(raw, &document); err != nil {
		return nil, err
	}

	return document, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
}
