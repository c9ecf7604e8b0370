package global

import (
	"time"

	"github.com/travigo/trainstatus/pkg/dataaggregator"
	"github.com/travigo/trainstatus/pkg/dataaggregator/source/databaselookup"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

func Setup(onTimeTolerance time.Duration) {
	dataaggregator.GlobalAggregator = dataaggregator.Aggregator{}

	dataaggregator.GlobalAggregator.RegisterSource(databaselookup.Source{
		Repository:      trainstore.NewMongoRepository(),
		RouteRepository: trainstore.NewMongoRouteRepository(),
		OnTimeTolerance: onTimeTolerance,
	})
}
