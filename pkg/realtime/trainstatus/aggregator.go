package trainstatus

import (
	"reflect"
	"sort"

	"github.com/travigo/trainstatus/pkg/ctdf"
)

// Changes describes what an aggregation did to a train
type Changes struct {
	Changed bool
	Stale   bool

	TDActivated     bool
	TDDeactivated   bool
	ScheduleMatched bool

	VariationChanged   bool
	OldVariationStatus ctdf.VariationStatus
}

// Aggregate applies one event to a train and returns the new state. It is a pure function of its inputs:
// the given train is never modified and applying the same event again gives the same result.
func Aggregate(train *ctdf.Train, event *ctdf.TrainEvent, config Config) (*ctdf.Train, Changes, error) {
	updated := train.Copy()
	changes := Changes{}

	bindIdentifiers(updated, event)

	switch event.Source {
	case ctdf.TrainEventSourceTD:
		aggregateTD(updated, event, &changes)
	case ctdf.TrainEventSourceSchedule:
		aggregateSchedule(updated, event, &changes)
	case ctdf.TrainEventSourceDarwin:
		aggregateDarwin(updated, event, config, &changes)
	default:
		return nil, Changes{}, ErrMalformedEvent
	}

	changes.Changed = !reflect.DeepEqual(train, updated)

	return updated, changes, nil
}

// bindIdentifiers fills identifiers the train does not yet have. Bound identifiers are never replaced.
func bindIdentifiers(train *ctdf.Train, event *ctdf.TrainEvent) {
	if train.Headcode == "" {
		train.Headcode = event.Headcode
	}
	if train.ServiceID == "" {
		train.ServiceID = event.ServiceID
	}
	if train.TrainUID == "" {
		train.TrainUID = event.TrainUID
	}
	if train.OperatorRef == "" {
		train.OperatorRef = event.Payload.OperatorRef
	}
	if train.ServiceDate == "" {
		train.ServiceDate = event.ServiceDate
	}
}

func aggregateTD(train *ctdf.Train, event *ctdf.TrainEvent, changes *Changes) {
	// Reports at or before the last applied one carry nothing new. Equal times are skipped so a replay
	// cannot re-activate a train the sweep has since dropped.
	if !train.LastTDTime.IsZero() && !event.ObservedTime.After(train.LastTDTime) {
		changes.Stale = true
		return
	}

	train.LastTDTime = event.ObservedTime
	if event.Payload.Berth != "" {
		train.LastBerth = event.Payload.Berth
	}

	if event.Payload.FinalBerth {
		changes.TDDeactivated = train.TDActive
		train.TDActive = false
	} else {
		changes.TDActivated = !train.TDActive
		train.TDActive = true
	}
}

func aggregateSchedule(train *ctdf.Train, event *ctdf.TrainEvent, changes *Changes) {
	changes.ScheduleMatched = !train.ScheduleActive
	train.ScheduleActive = true

	incoming := event.Payload.Route
	if len(incoming) == 0 && event.CRS != "" {
		incoming = []*ctdf.TrainWaypoint{{CRS: event.CRS, ScheduledTime: event.ScheduledTime}}
	}

	train.Route = mergeRoute(train.Route, incoming)
}

// mergeRoute adds waypoints not already present and fills blanks on the ones that are, keeping the
// route ordered by scheduled time. Realtime annotations on existing waypoints survive.
func mergeRoute(route []*ctdf.TrainWaypoint, incoming []*ctdf.TrainWaypoint) []*ctdf.TrainWaypoint {
	existing := map[string]*ctdf.TrainWaypoint{}
	for _, waypoint := range route {
		existing[waypoint.Key()] = waypoint
	}

	for _, waypoint := range incoming {
		if current, exists := existing[waypoint.Key()]; exists {
			if current.CRS == "" {
				current.CRS = waypoint.CRS
			}
			if current.Tiploc == "" {
				current.Tiploc = waypoint.Tiploc
			}
			if current.Berth == "" {
				current.Berth = waypoint.Berth
			}
			if current.Platform == "" {
				current.Platform = waypoint.Platform
			}
			continue
		}

		added := *waypoint
		route = append(route, &added)
		existing[added.Key()] = &added
	}

	sort.SliceStable(route, func(i, j int) bool {
		return route[i].ScheduledTime.Before(route[j].ScheduledTime)
	})

	return route
}

func aggregateDarwin(train *ctdf.Train, event *ctdf.TrainEvent, config Config, changes *Changes) {
	waypoint := train.WaypointAt(event.CRS, event.ScheduledTime)
	if waypoint == nil && event.Payload.Tiploc != "" {
		for _, candidate := range train.Route {
			if candidate.Tiploc == event.Payload.Tiploc {
				waypoint = candidate
				break
			}
		}
	}

	// Reports timed before the last movement were overtaken by it
	superseded := train.LastMovement != nil && !event.ObservedTime.IsZero() &&
		event.ObservedTime.Before(train.LastMovement.Timestamp)

	if waypoint != nil {
		annotate := !superseded
		if event.Payload.Estimated && !waypoint.ActualTime.IsZero() {
			annotate = false
		}

		if annotate {
			if event.Payload.Platform != "" {
				waypoint.Platform = event.Payload.Platform
			}
			if event.Payload.Cancelled {
				waypoint.Cancelled = true
			} else if !event.ObservedTime.IsZero() {
				waypoint.Cancelled = false
			}
			if event.Payload.Estimated {
				waypoint.EstimatedTime = event.ObservedTime
			}
		}

		if !event.Payload.Estimated && !event.ObservedTime.IsZero() && !event.ObservedTime.Before(waypoint.ActualTime) {
			waypoint.ActualTime = event.ObservedTime
		}
	}

	// Forecasts annotate the route but are not movements
	if event.Payload.Estimated || event.ObservedTime.IsZero() {
		return
	}

	train.MovementActive = true

	if train.LastMovement != nil && event.ObservedTime.Before(train.LastMovement.Timestamp) {
		changes.Stale = true
		return
	}

	scheduled := event.ScheduledTime
	if scheduled.IsZero() && waypoint != nil {
		scheduled = waypoint.ScheduledTime
	}

	status, deltaMinutes := ctdf.ClassifyVariation(scheduled, event.ObservedTime, config.OnTimeTolerance)
	if len(train.Route) > 0 && event.CRS != "" && !train.HasCRS(event.CRS) {
		status = ctdf.VariationStatusOffRoute
	}

	location := event.CRS
	if location == "" {
		location = event.Payload.Tiploc
	}

	oldStatus := ctdf.VariationStatus("")
	if train.LastMovement != nil {
		oldStatus = train.LastMovement.VariationStatus
	}

	train.LastMovement = &ctdf.TrainMovement{
		Location:        location,
		CRS:             event.CRS,
		Platform:        event.Payload.Platform,
		Timestamp:       event.ObservedTime,
		ScheduledTime:   scheduled,
		VariationStatus: status,
		DeltaMinutes:    deltaMinutes,
	}

	if oldStatus != status {
		changes.VariationChanged = true
		changes.OldVariationStatus = oldStatus
	}
}
