package databaselookup

import (
	"context"

	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/dataaggregator/query"
)

func (s Source) RouteQuery(ctx context.Context, routeQuery query.Route) (*ctdf.RouteDefinition, error) {
	return s.RouteRepository.Get(ctx, routeQuery.PrimaryIdentifier)
}

func (s Source) RoutesQuery(ctx context.Context, _ query.Routes) ([]*ctdf.RouteDefinition, error) {
	return s.RouteRepository.List(ctx)
}
