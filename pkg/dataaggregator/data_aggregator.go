package dataaggregator

import (
	"context"
	"errors"
	"reflect"

	"github.com/rs/zerolog/log"
)

var ErrNoSource = errors.New("failed to find a matching data source for type")

type Aggregator struct {
	Sources []DataSource
}

var GlobalAggregator Aggregator

func (a *Aggregator) RegisterSource(source DataSource) {
	a.Sources = append(a.Sources, source)

	log.Debug().Str("name", source.GetName()).Msg("Registering new Data Source")
}

// Lookup asks the global aggregator for a T matching the query
func Lookup[T any](ctx context.Context, query any) (T, error) {
	return LookupWith[T](ctx, &GlobalAggregator, query)
}

// LookupWith asks the first source in the aggregator that can produce a T. Queries are read only.
func LookupWith[T any](ctx context.Context, aggregator *Aggregator, query any) (T, error) {
	var empty T

	lookupType := reflect.TypeOf(*new(T))
	if lookupType.Kind() == reflect.Pointer {
		lookupType = lookupType.Elem()
	}

	for _, source := range aggregator.Sources {
		if !supports(source, lookupType) {
			continue
		}

		returnValue, returnError := source.Lookup(ctx, query)
		if returnValue == nil {
			return empty, returnError
		}

		typedValue, ok := returnValue.(T)
		if !ok {
			return empty, errors.New("data source returned an unexpected type")
		}

		return typedValue, returnError
	}

	return empty, ErrNoSource
}

func supports(source DataSource, lookupType reflect.Type) bool {
	for _, supportedType := range source.Supports() {
		if lookupType == supportedType {
			return true
		}
	}

	return false
}
