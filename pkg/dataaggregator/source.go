package dataaggregator

import (
	"context"
	"reflect"
)

// DataSource answers the query types it lists in Supports. Lookup must not modify stored state.
type DataSource interface {
	GetName() string
	Supports() []reflect.Type
	Lookup(ctx context.Context, query any) (interface{}, error)
}
