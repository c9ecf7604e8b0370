// Package trainstore persists train entities and route definitions behind a small predicate based interface
package trainstore

import (
	"context"
	"errors"

	"github.com/travigo/trainstatus/pkg/ctdf"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrVersionConflict       = errors.New("version conflict")
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	ErrIdentityConflict      = errors.New("identity keys owned by conflicting trains")
)

// Repository stores one document per train per service day
type Repository interface {
	// FindOne returns the single train matching the filter or ErrNotFound
	FindOne(ctx context.Context, filter *ctdf.TrainFilter) (*ctdf.Train, error)

	// FindMany returns every matching train ordered by primary identifier. When fields are given only
	// those fields (plus the primary identifier) are populated.
	FindMany(ctx context.Context, filter *ctdf.TrainFilter, fields ...string) ([]*ctdf.Train, error)

	// Upsert writes the whole train. An existing train is only replaced when its stored version matches,
	// otherwise ErrVersionConflict is returned. The stored copy is returned with its new version.
	// Identity keys of a train that already exists are left as stored.
	Upsert(ctx context.Context, train *ctdf.Train) (*ctdf.Train, error)

	// FindOrCreate atomically returns the train holding the most specific of identityKeys whose train UID and
	// service ID agree with seed, inserting seed when there is none. The returned train claims every key
	// nobody holds yet. A new train only claims free keys; ErrIdentityConflict when none are free.
	FindOrCreate(ctx context.Context, identityKeys []string, seed *ctdf.Train) (*ctdf.Train, bool, error)

	// ClaimIdentityKeys adds the keys nobody holds yet to the train and returns the ones it now holds
	ClaimIdentityKeys(ctx context.Context, primaryIdentifier string, identityKeys []string) ([]string, error)
}

type RouteRepository interface {
	Get(ctx context.Context, identifier string) (*ctdf.RouteDefinition, error)
	List(ctx context.Context) ([]*ctdf.RouteDefinition, error)
	Put(ctx context.Context, route *ctdf.RouteDefinition) error
	Delete(ctx context.Context, identifier string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// pickOwner returns the holder of the most specific key that does not conflict with seed
func pickOwner(owners []*ctdf.Train, identityKeys []string, seed *ctdf.Train) *ctdf.Train {
	for _, key := range identityKeys {
		for _, owner := range owners {
			if owner.HoldsIdentityKey(key) && !owner.ConflictsWith(seed.TrainUID, seed.ServiceID) {
				return owner
			}
		}
	}

	return nil
}

func freeIdentityKeys(owners []*ctdf.Train, identityKeys []string) []string {
	var free []string

	for _, key := range identityKeys {
		held := false
		for _, owner := range owners {
			if owner.HoldsIdentityKey(key) {
				held = true
				break
			}
		}

		if !held {
			free = append(free, key)
		}
	}

	return free
}

// IsTransient reports whether an operation that failed with err is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrRepositoryUnavailable) || errors.Is(err, ErrVersionConflict)
}
