package databaselookup

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/dataaggregator/query"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

// Source answers train, station and route queries straight from the repositories
type Source struct {
	Repository      trainstore.Repository
	RouteRepository trainstore.RouteRepository

	OnTimeTolerance time.Duration
}

func (s Source) GetName() string {
	return "Database Lookup"
}

func (s Source) Supports() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(ctdf.Train{}),
		reflect.TypeOf([]*ctdf.Train{}),
		reflect.TypeOf([]*ctdf.TrainStatusSummary{}),
		reflect.TypeOf([]*ctdf.StationBoardEntry{}),
		reflect.TypeOf(ctdf.RouteDefinition{}),
		reflect.TypeOf([]*ctdf.RouteDefinition{}),
	}
}

func (s Source) Lookup(ctx context.Context, q any) (interface{}, error) {
	switch q := q.(type) {
	case query.Train:
		return s.TrainQuery(ctx, q)
	case query.TrainByService:
		return s.TrainByServiceQuery(ctx, q)
	case query.TrainByHeadcode:
		return s.TrainByHeadcodeQuery(ctx, q)
	case query.Trains:
		return s.TrainsQuery(ctx, q)
	case query.ActiveTrainStatus:
		return s.ActiveTrainStatusQuery(ctx, q)
	case query.StationBoard:
		return s.StationBoardQuery(ctx, q)
	case query.StationDelays:
		return s.StationDelaysQuery(ctx, q)
	case query.Route:
		return s.RouteQuery(ctx, q)
	case query.Routes:
		return s.RoutesQuery(ctx, q)
	}

	return nil, errors.New("unable to lookup")
}
