package trainstatus

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/trainstore"
	"github.com/travigo/trainstatus/pkg/util"
)

type ResolutionMethod string

const (
	ResolutionServiceID ResolutionMethod = "ServiceID"
	ResolutionTrainUID  ResolutionMethod = "TrainUID"
	ResolutionHeadcode  ResolutionMethod = "Headcode"
	ResolutionCall      ResolutionMethod = "StationCall"
	ResolutionNone      ResolutionMethod = "None"
)

// Identifier maps an event onto an existing train. It only reads from the repository.
type Identifier struct {
	Repository trainstore.Repository
	Config     Config
}

type resolutionCandidate struct {
	train *ctdf.Train
	delta time.Duration
}

// Identify returns the train the event belongs to, or nil with ResolutionNone when a new train must be
// created. Candidates are tried exact identifiers first, then headcode and day, then station call.
func (i *Identifier) Identify(ctx context.Context, event *ctdf.TrainEvent) (*ctdf.Train, ResolutionMethod, error) {
	if !event.HasIdentifiers() || event.ServiceDate == "" {
		return nil, ResolutionNone, ErrMalformedEvent
	}

	if event.ServiceID != "" {
		train, err := i.findExact(ctx, &ctdf.TrainFilter{ServiceDate: event.ServiceDate, ServiceID: event.ServiceID})
		if err != nil || train != nil {
			return train, ResolutionServiceID, err
		}
	}

	if event.TrainUID != "" {
		train, err := i.findExact(ctx, &ctdf.TrainFilter{ServiceDate: event.ServiceDate, TrainUID: event.TrainUID})
		if err != nil || train != nil {
			return train, ResolutionTrainUID, err
		}
	}

	if event.Headcode != "" {
		train, err := i.findByHeadcode(ctx, event)
		if err != nil || train != nil {
			return train, ResolutionHeadcode, err
		}
	}

	if event.Source != ctdf.TrainEventSourceTD && event.CRS != "" && !event.ScheduledTime.IsZero() {
		train, err := i.findByCall(ctx, event)
		if err != nil || train != nil {
			return train, ResolutionCall, err
		}
	}

	return nil, ResolutionNone, nil
}

func (i *Identifier) findExact(ctx context.Context, filter *ctdf.TrainFilter) (*ctdf.Train, error) {
	filter.Archived = ctdf.Bool(false)

	trains, err := i.Repository.FindMany(ctx, filter)
	if err != nil {
		return nil, err
	}

	if len(trains) == 0 {
		return nil, nil
	}

	return trains[0], nil
}

func (i *Identifier) findByHeadcode(ctx context.Context, event *ctdf.TrainEvent) (*ctdf.Train, error) {
	trains, err := i.Repository.FindMany(ctx, &ctdf.TrainFilter{
		ServiceDate: event.ServiceDate,
		Headcode:    event.Headcode,
		Archived:    ctdf.Bool(false),
	})
	if err != nil {
		return nil, err
	}

	var candidates []resolutionCandidate
	for _, train := range trains {
		if train.ConflictsWith(event.TrainUID, event.ServiceID) {
			continue
		}

		candidates = append(candidates, resolutionCandidate{train: train})
	}

	if len(candidates) == 0 && event.Source == ctdf.TrainEventSourceTD {
		return i.findOvernight(ctx, event)
	}

	return pickCandidate(candidates, event), nil
}

// findOvernight looks for a train of the previous service date still running past midnight. TD reports carry
// no service date of their own, so theirs is taken from the wall clock and changes at midnight.
func (i *Identifier) findOvernight(ctx context.Context, event *ctdf.TrainEvent) (*ctdf.Train, error) {
	midnight, err := util.ParseServiceDate(event.ServiceDate)
	if err != nil {
		return nil, nil
	}
	previousDate := util.ServiceDate(midnight.AddDate(0, 0, -1).Add(12 * time.Hour))

	trains, err := i.Repository.FindMany(ctx, &ctdf.TrainFilter{
		ServiceDate: previousDate,
		Headcode:    event.Headcode,
		Archived:    ctdf.Bool(false),
	})
	if err != nil {
		return nil, err
	}

	var candidates []resolutionCandidate
	for _, train := range trains {
		if train.ConflictsWith(event.TrainUID, event.ServiceID) {
			continue
		}

		if !stillRunning(train, event.ObservedTime, midnight, i.Config.TDSilenceTimeout) {
			continue
		}

		candidates = append(candidates, resolutionCandidate{train: train})
	}

	return pickCandidate(candidates, event), nil
}

// stillRunning is true for a train tracked by TD within the silence timeout or scheduled to call after midnight
func stillRunning(train *ctdf.Train, observed time.Time, midnight time.Time, silenceTimeout time.Duration) bool {
	if train.TDActive && !train.LastTDTime.IsZero() && !observed.IsZero() &&
		observed.Sub(train.LastTDTime) <= silenceTimeout {
		return true
	}

	for _, waypoint := range train.Route {
		if !waypoint.ScheduledTime.Before(midnight) {
			return true
		}
	}

	return false
}

func (i *Identifier) findByCall(ctx context.Context, event *ctdf.TrainEvent) (*ctdf.Train, error) {
	trains, err := i.Repository.FindMany(ctx, &ctdf.TrainFilter{
		CRS:        event.CRS,
		WindowFrom: event.ScheduledTime.Add(-i.Config.ResolutionTolerance),
		WindowTo:   event.ScheduledTime.Add(i.Config.ResolutionTolerance),
		Archived:   ctdf.Bool(false),
	})
	if err != nil {
		return nil, err
	}

	var candidates []resolutionCandidate
	for _, train := range trains {
		if train.ConflictsWith(event.TrainUID, event.ServiceID) {
			continue
		}
		if train.Headcode != "" && event.Headcode != "" && train.Headcode != event.Headcode {
			continue
		}

		waypoint := train.WaypointAt(event.CRS, event.ScheduledTime)
		if waypoint == nil || waypoint.ScheduledTime.IsZero() {
			continue
		}

		delta := waypoint.ScheduledTime.Sub(event.ScheduledTime)
		if delta < 0 {
			delta = -delta
		}
		if delta > i.Config.ResolutionTolerance {
			continue
		}

		candidates = append(candidates, resolutionCandidate{train: train, delta: delta})
	}

	return pickCandidate(candidates, event), nil
}

// pickCandidate orders by smallest delta, then schedule bound trains, then primary identifier so the same
// inputs always give the same train
func pickCandidate(candidates []resolutionCandidate, event *ctdf.TrainEvent) *ctdf.Train {
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidateLess(candidates[a], candidates[b])
	})

	// Only the identifier separated them
	if len(candidates) > 1 && candidates[0].delta == candidates[1].delta &&
		candidates[0].train.ScheduleActive == candidates[1].train.ScheduleActive {
		log.Warn().
			Str("source", string(event.Source)).
			Str("headcode", event.Headcode).
			Str("crs", event.CRS).
			Str("trainid", candidates[0].train.PrimaryIdentifier).
			Str("otherid", candidates[1].train.PrimaryIdentifier).
			Msg("Ambiguous train resolution")
	}

	return candidates[0].train
}

func candidateLess(a resolutionCandidate, b resolutionCandidate) bool {
	if a.delta != b.delta {
		return a.delta < b.delta
	}
	if a.train.ScheduleActive != b.train.ScheduleActive {
		return a.train.ScheduleActive
	}

	return a.train.PrimaryIdentifier < b.train.PrimaryIdentifier
}
