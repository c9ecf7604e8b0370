package trainstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryRepository is an in-process Repository. Every read and write goes through deep copies so callers
// never share state with the store.
type MemoryRepository struct {
	mutex sync.RWMutex

	trains     map[string]*ctdf.Train
	identities map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		trains:     map[string]*ctdf.Train{},
		identities: map[string]string{},
	}
}

func (r *MemoryRepository) FindOne(ctx context.Context, filter *ctdf.TrainFilter) (*ctdf.Train, error) {
	trains, err := r.FindMany(ctx, filter)
	if err != nil {
		return nil, err
	}

	if len(trains) == 0 {
		return nil, ErrNotFound
	}

	return trains[0], nil
}

func (r *MemoryRepository) FindMany(ctx context.Context, filter *ctdf.TrainFilter, fields ...string) ([]*ctdf.Train, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var results []*ctdf.Train
	for _, train := range r.trains {
		if filter != nil && !filter.Matches(train) {
			continue
		}

		result, err := cloneTrain(train)
		if err != nil {
			return nil, err
		}

		if len(fields) > 0 {
			result, err = projectTrain(result, fields)
			if err != nil {
				return nil, err
			}
		}

		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PrimaryIdentifier < results[j].PrimaryIdentifier
	})

	return results, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, train *ctdf.Train) (*ctdf.Train, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, err := cloneTrain(train)
	if err != nil {
		return nil, err
	}

	if existing, exists := r.trains[train.PrimaryIdentifier]; exists {
		if existing.Version != train.Version {
			return nil, fmt.Errorf("%w: %s stored %d, got %d", ErrVersionConflict, train.PrimaryIdentifier, existing.Version, train.Version)
		}
		stored.IdentityKeys = append([]string(nil), existing.IdentityKeys...)
	} else {
		for _, key := range train.IdentityKeys {
			if owner, exists := r.identities[key]; exists {
				return nil, fmt.Errorf("%w: identity %s owned by %s", ErrVersionConflict, key, owner)
			}
		}
		for _, key := range train.IdentityKeys {
			r.identities[key] = train.PrimaryIdentifier
		}
	}

	stored.Version++
	r.trains[stored.PrimaryIdentifier] = stored

	return cloneTrain(stored)
}

func (r *MemoryRepository) FindOrCreate(ctx context.Context, identityKeys []string, seed *ctdf.Train) (*ctdf.Train, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	owners := r.owners(identityKeys)

	if owner := pickOwner(owners, identityKeys, seed); owner != nil {
		r.claim(owner, identityKeys)

		existing, err := cloneTrain(owner)
		return existing, false, err
	}

	free := freeIdentityKeys(owners, identityKeys)
	if len(free) == 0 {
		return nil, false, fmt.Errorf("%w: %v", ErrIdentityConflict, identityKeys)
	}

	stored, err := cloneTrain(seed)
	if err != nil {
		return nil, false, err
	}
	stored.IdentityKeys = free
	stored.Version = 1

	r.trains[stored.PrimaryIdentifier] = stored
	for _, key := range free {
		r.identities[key] = stored.PrimaryIdentifier
	}

	created, err := cloneTrain(stored)
	return created, true, err
}

func (r *MemoryRepository) ClaimIdentityKeys(ctx context.Context, primaryIdentifier string, identityKeys []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	train, exists := r.trains[primaryIdentifier]
	if !exists {
		return nil, ErrNotFound
	}

	r.claim(train, identityKeys)

	return append([]string(nil), train.IdentityKeys...), nil
}

// owners lists the distinct trains holding any of the keys. Callers hold the mutex.
func (r *MemoryRepository) owners(identityKeys []string) []*ctdf.Train {
	var owners []*ctdf.Train
	seen := map[string]bool{}

	for _, key := range identityKeys {
		id, exists := r.identities[key]
		if !exists || seen[id] {
			continue
		}
		seen[id] = true
		owners = append(owners, r.trains[id])
	}

	return owners
}

func (r *MemoryRepository) claim(train *ctdf.Train, identityKeys []string) {
	for _, key := range identityKeys {
		if _, taken := r.identities[key]; taken {
			continue
		}

		r.identities[key] = train.PrimaryIdentifier
		train.IdentityKeys = append(train.IdentityKeys, key)
	}
}

// Len is the number of stored trains
func (r *MemoryRepository) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.trains)
}

func cloneTrain(train *ctdf.Train) (*ctdf.Train, error) {
	var clone ctdf.Train
	if err := copier.CopyWithOption(&clone, train, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}

	return &clone, nil
}

// projectTrain round trips the projected document so the result keeps the Train shape
func projectTrain(train *ctdf.Train, fields []string) (*ctdf.Train, error) {
	projected, err := train.Project(fields)
	if err != nil {
		return nil, err
	}

	raw, err := bson.Marshal(projected)
	if err != nil {
		return nil, err
	}

	var result ctdf.Train
	if err := bson.Unmarshal(raw, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
