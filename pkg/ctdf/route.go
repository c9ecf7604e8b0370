package ctdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/travigo/trainstatus/pkg/util"
)

var RouteIDFormat = "GB:ROUTE:%s"

// RouteDefinition is a user-authored route for a non-standard service
type RouteDefinition struct {
	PrimaryIdentifier string `groups:"basic"`

	Name        string `groups:"basic" validate:"required,max=128"`
	Headcode    string `groups:"basic" validate:"omitempty,len=4,alphanum"`
	ServiceDate string `groups:"basic" validate:"omitempty,datetime=2006-01-02"`
	OperatorRef string `groups:"basic" validate:"omitempty,max=8"`

	Waypoints []*RouteDefinitionWaypoint `groups:"basic" validate:"required,min=2,dive,required"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`
}

type RouteDefinitionWaypoint struct {
	Tiploc        string    `groups:"basic" validate:"required_without=CRS,max=7"`
	CRS           string    `groups:"basic" validate:"required_without=Tiploc,max=3"`
	ScheduledTime time.Time `groups:"basic"`
	Platform      string    `groups:"basic" validate:"omitempty,max=3"`
}

func NewRouteID() string {
	return fmt.Sprintf(RouteIDFormat, uuid.New().String())
}

// Normalise canonicalises the identifiers a user typed in
func (r *RouteDefinition) Normalise() {
	r.Name = strings.TrimSpace(r.Name)
	r.Headcode = util.NormaliseIdentifier(r.Headcode)
	r.OperatorRef = util.NormaliseIdentifier(r.OperatorRef)

	for _, waypoint := range r.Waypoints {
		if waypoint == nil {
			continue
		}
		waypoint.Tiploc = util.NormaliseIdentifier(waypoint.Tiploc)
		waypoint.CRS = util.NormaliseIdentifier(waypoint.CRS)
		waypoint.Platform = strings.TrimSpace(waypoint.Platform)
	}
}

// ToTrainRoute converts the definition into train waypoints
func (r *RouteDefinition) ToTrainRoute() []*TrainWaypoint {
	route := make([]*TrainWaypoint, 0, len(r.Waypoints))

	for _, waypoint := range r.Waypoints {
		route = append(route, &TrainWaypoint{
			Tiploc:        waypoint.Tiploc,
			CRS:           waypoint.CRS,
			ScheduledTime: waypoint.ScheduledTime,
			Platform:      waypoint.Platform,
		})
	}

	return route
}

// ScheduleEvent turns a definition bound to a headcode and day into a user-authored schedule event.
// Returns false when the definition is not bound to a running train.
func (r *RouteDefinition) ScheduleEvent(now time.Time) (*TrainEvent, bool) {
	if r.Headcode == "" || r.ServiceDate == "" {
		return nil, false
	}

	event := &TrainEvent{
		Source:       TrainEventSourceSchedule,
		Headcode:     r.Headcode,
		ServiceDate:  r.ServiceDate,
		ObservedTime: now,
		Payload: TrainEventPayload{
			OperatorRef:  r.OperatorRef,
			Route:        r.ToTrainRoute(),
			UserAuthored: true,
		},
	}

	if len(r.Waypoints) > 0 {
		event.CRS = r.Waypoints[0].CRS
		event.ScheduledTime = r.Waypoints[0].ScheduledTime
	}

	return event, true
}
