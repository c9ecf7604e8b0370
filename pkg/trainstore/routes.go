package trainstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRouteRepository struct {
	collection *mongo.Collection
}

func NewMongoRouteRepository() *MongoRouteRepository {
	return &MongoRouteRepository{
		collection: database.GetCollection(database.RoutesCollection),
	}
}

func (r *MongoRouteRepository) Get(ctx context.Context, identifier string) (*ctdf.RouteDefinition, error) {
	var route *ctdf.RouteDefinition
	err := r.collection.FindOne(ctx, bson.M{"primaryidentifier": identifier}).Decode(&route)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, unavailable(err)
	}

	return route, nil
}

func (r *MongoRouteRepository) List(ctx context.Context) ([]*ctdf.RouteDefinition, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "primaryidentifier", Value: 1}}))
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	routes := []*ctdf.RouteDefinition{}
	if err := cursor.All(ctx, &routes); err != nil {
		return nil, unavailable(err)
	}

	return routes, nil
}

func (r *MongoRouteRepository) Put(ctx context.Context, route *ctdf.RouteDefinition) error {
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"primaryidentifier": route.PrimaryIdentifier},
		route,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return unavailable(err)
	}

	return nil
}

func (r *MongoRouteRepository) Delete(ctx context.Context, identifier string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"primaryidentifier": identifier})
	if err != nil {
		return unavailable(err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *MongoRouteRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, unavailable(err)
	}

	return result.DeletedCount, nil
}

type MemoryRouteRepository struct {
	mutex  sync.RWMutex
	routes map[string]*ctdf.RouteDefinition
}

func NewMemoryRouteRepository() *MemoryRouteRepository {
	return &MemoryRouteRepository{routes: map[string]*ctdf.RouteDefinition{}}
}

func (r *MemoryRouteRepository) Get(_ context.Context, identifier string) (*ctdf.RouteDefinition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	route, exists := r.routes[identifier]
	if !exists {
		return nil, ErrNotFound
	}

	return cloneRoute(route)
}

func (r *MemoryRouteRepository) List(_ context.Context) ([]*ctdf.RouteDefinition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	routes := []*ctdf.RouteDefinition{}
	for _, route := range r.routes {
		clone, err := cloneRoute(route)
		if err != nil {
			return nil, err
		}
		routes = append(routes, clone)
	}

	sort.Slice(routes, func(i, j int) bool {
		return routes[i].PrimaryIdentifier < routes[j].PrimaryIdentifier
	})

	return routes, nil
}

func (r *MemoryRouteRepository) Put(_ context.Context, route *ctdf.RouteDefinition) error {
	clone, err := cloneRoute(route)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.routes[route.PrimaryIdentifier] = clone

	return nil
}

func (r *MemoryRouteRepository) Delete(_ context.Context, identifier string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.routes[identifier]; !exists {
		return ErrNotFound
	}
	delete(r.routes, identifier)

	return nil
}

func (r *MemoryRouteRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	count := int64(len(r.routes))
	r.routes = map[string]*ctdf.RouteDefinition{}

	return count, nil
}

func cloneRoute(route *ctdf.RouteDefinition) (*ctdf.RouteDefinition, error) {
	var clone ctdf.RouteDefinition
	if err := copier.CopyWithOption(&clone, route, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}

	return &clone, nil
}
