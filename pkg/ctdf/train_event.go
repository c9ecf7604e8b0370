package ctdf

import (
	"fmt"
	"time"

	"github.com/travigo/trainstatus/pkg/util"
)

type TrainEventSource string

const (
	TrainEventSourceTD       TrainEventSource = "TD"
	TrainEventSourceSchedule TrainEventSource = "Schedule"
	TrainEventSourceDarwin   TrainEventSource = "Darwin"
)

// TrainEvent is a single normalized fact from one of the rail feeds. It is treated as immutable once built.
type TrainEvent struct {
	Source TrainEventSource

	Headcode  string
	ServiceID string
	TrainUID  string
	CRS       string

	ServiceDate   string
	ScheduledTime time.Time
	ObservedTime  time.Time

	Payload TrainEventPayload
}

type TrainEventPayload struct {
	// TD
	Area       string `json:",omitempty"`
	FromBerth  string `json:",omitempty"`
	Berth      string `json:",omitempty"`
	FinalBerth bool   `json:",omitempty"`

	// Darwin
	Tiploc    string `json:",omitempty"`
	Platform  string `json:",omitempty"`
	Estimated bool   `json:",omitempty"`
	Cancelled bool   `json:",omitempty"`

	// Schedule
	OperatorRef  string           `json:",omitempty"`
	Route        []*TrainWaypoint `json:",omitempty"`
	UserAuthored bool             `json:",omitempty"`
}

// Normalize returns a copy of the event with identifiers canonicalised and the service date filled in
func (e TrainEvent) Normalize() TrainEvent {
	e.Headcode = util.NormaliseIdentifier(e.Headcode)
	e.ServiceID = util.NormaliseIdentifier(e.ServiceID)
	e.TrainUID = util.NormaliseIdentifier(e.TrainUID)
	e.CRS = util.NormaliseIdentifier(e.CRS)
	e.Payload.Berth = util.NormaliseIdentifier(e.Payload.Berth)
	e.Payload.Tiploc = util.NormaliseIdentifier(e.Payload.Tiploc)

	if e.ServiceDate == "" {
		switch {
		case !e.ScheduledTime.IsZero():
			e.ServiceDate = util.ServiceDate(e.ScheduledTime)
		case !e.ObservedTime.IsZero():
			e.ServiceDate = util.ServiceDate(e.ObservedTime)
		}
	}

	if len(e.Payload.Route) > 0 {
		route := make([]*TrainWaypoint, 0, len(e.Payload.Route))
		for _, waypoint := range e.Payload.Route {
			if waypoint == nil {
				continue
			}
			normalised := *waypoint
			normalised.Tiploc = util.NormaliseIdentifier(normalised.Tiploc)
			normalised.CRS = util.NormaliseIdentifier(normalised.CRS)
			route = append(route, &normalised)
		}
		e.Payload.Route = route
	}

	return e
}

// HasIdentifiers reports whether the event carries anything the resolver can correlate on
func (e *TrainEvent) HasIdentifiers() bool {
	if e.Headcode != "" || e.ServiceID != "" || e.TrainUID != "" {
		return true
	}

	// Station + time can only be correlated against an existing route
	return e.Source != TrainEventSourceTD && e.CRS != "" && !e.ScheduledTime.IsZero()
}

// IdentityKeys falls back to the station call when the event carries no train identifiers
func (e *TrainEvent) IdentityKeys() []string {
	if keys := TrainIdentityKeys(e.ServiceDate, e.TrainUID, e.ServiceID, e.Headcode); len(keys) > 0 {
		return keys
	}

	if e.CRS != "" && !e.ScheduledTime.IsZero() {
		return []string{fmt.Sprintf("%s/call/%s/%s", e.ServiceDate, e.CRS, e.ScheduledTime.UTC().Format("1504"))}
	}

	return nil
}
