package ctdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slices"
)

var TrainIDFormat = "GB:TRAIN:%s"

// Train is the merged live running state of one physical train on one service day
type Train struct {
	PrimaryIdentifier string `groups:"basic"`
	IdentityKeys      []string `groups:"internal" bson:",omitempty"`

	Headcode    string `groups:"basic"`
	ServiceID   string `groups:"basic"`
	TrainUID    string `groups:"basic"`
	OperatorRef string `groups:"basic"`
	ServiceDate string `groups:"basic"`

	TDActive       bool `groups:"basic"`
	ScheduleActive bool `groups:"basic"`
	MovementActive bool `groups:"basic"`
	Archived       bool `groups:"detailed"`

	LastTDTime time.Time `groups:"detailed"`
	LastBerth  string    `groups:"detailed"`

	LastMovement *TrainMovement `groups:"basic"`

	Route []*TrainWaypoint `groups:"detailed"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	Version int64 `groups:"internal"`
}

func NewTrainID() string {
	return fmt.Sprintf(TrainIDFormat, uuid.New().String())
}

// Copy returns a deep copy. Nil and empty routes are kept distinct.
func (t *Train) Copy() *Train {
	clone := *t

	if t.LastMovement != nil {
		movement := *t.LastMovement
		clone.LastMovement = &movement
	}

	if t.Route != nil {
		clone.Route = make([]*TrainWaypoint, len(t.Route))
		for i, waypoint := range t.Route {
			if waypoint == nil {
				continue
			}
			copied := *waypoint
			clone.Route[i] = &copied
		}
	}

	return &clone
}

// TrainIdentityKeys lists every unique key a train with these identifiers claims, most specific first.
// Each key belongs to at most one train, which is what makes find-or-create atomic.
func TrainIdentityKeys(serviceDate string, trainUID string, serviceID string, headcode string) []string {
	var keys []string

	if trainUID != "" {
		keys = append(keys, fmt.Sprintf("%s/uid/%s", serviceDate, trainUID))
	}
	if serviceID != "" {
		keys = append(keys, fmt.Sprintf("%s/service/%s", serviceDate, serviceID))
	}
	if headcode != "" {
		keys = append(keys, fmt.Sprintf("%s/headcode/%s", serviceDate, headcode))
	}

	return keys
}

// ConflictsWith is true when the train is already bound to a different train UID or service ID
func (t *Train) ConflictsWith(trainUID string, serviceID string) bool {
	if t.TrainUID != "" && trainUID != "" && t.TrainUID != trainUID {
		return true
	}
	if t.ServiceID != "" && serviceID != "" && t.ServiceID != serviceID {
		return true
	}

	return false
}

// HoldsIdentityKey reports whether the train has claimed key
func (t *Train) HoldsIdentityKey(key string) bool {
	return slices.Contains(t.IdentityKeys, key)
}

// WaypointAt returns the route waypoint at the given CRS whose scheduled time is closest to the given time.
// A zero time returns the first waypoint at that CRS.
func (t *Train) WaypointAt(crs string, scheduled time.Time) *TrainWaypoint {
	var best *TrainWaypoint
	var bestDelta time.Duration

	for _, waypoint := range t.Route {
		if crs == "" || waypoint.CRS != crs {
			continue
		}

		if scheduled.IsZero() || waypoint.ScheduledTime.IsZero() {
			if best == nil {
				best = waypoint
			}
			continue
		}

		delta := absDuration(waypoint.ScheduledTime.Sub(scheduled))
		if best == nil || best.ScheduledTime.IsZero() || delta < bestDelta {
			best = waypoint
			bestDelta = delta
		}
	}

	return best
}

// HasCRS reports whether the route calls at the given station
func (t *Train) HasCRS(crs string) bool {
	return slices.ContainsFunc(t.Route, func(waypoint *TrainWaypoint) bool {
		return waypoint.CRS == crs
	})
}

// Project reduces the train to the requested (lowercase, dot separated) document fields.
// The primary identifier is always included.
func (t *Train) Project(fields []string) (bson.M, error) {
	raw, err := bson.Marshal(t)
	if err != nil {
		return nil, err
	}

	var document bson.M
	if err := bson.Unmarshal(raw, &document); err != nil {
		return nil, err
	}

	projected := bson.M{"primaryidentifier": t.PrimaryIdentifier}

	for _, field := range fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}

		value, found := lookupPath(document, strings.Split(field, "."))
		if !found {
			continue
		}

		setPath(projected, strings.Split(field, "."), value)
	}

	return projected, nil
}

func lookupPath(document interface{}, path []string) (interface{}, bool) {
	if len(path) == 0 {
		return document, true
	}

	var next interface{}
	var ok bool

	switch typed := document.(type) {
	case bson.M:
		next, ok = typed[path[0]]
	case map[string]interface{}:
		next, ok = typed[path[0]]
	case primitive.D:
		next, ok = typed.Map()[path[0]]
	default:
		return nil, false
	}

	if !ok || next == nil {
		return nil, ok && len(path) == 1
	}

	return lookupPath(next, path[1:])
}

func setPath(document bson.M, path []string, value interface{}) {
	if len(path) == 1 {
		document[path[0]] = value
		return
	}

	child, ok := document[path[0]].(bson.M)
	if !ok {
		child = bson.M{}
		document[path[0]] = child
	}

	setPath(child, path[1:], value)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}

type TrainMovement struct {
	Location string `groups:"basic"`
	CRS      string `groups:"basic"`
	Platform string `groups:"basic"`

	Timestamp     time.Time `groups:"basic"`
	ScheduledTime time.Time `groups:"basic"`

	VariationStatus VariationStatus `groups:"basic"`
	DeltaMinutes    int             `groups:"basic"`
}

type VariationStatus string

const (
	VariationStatusOnTime   VariationStatus = "ON_TIME"
	VariationStatusEarly    VariationStatus = "EARLY"
	VariationStatusLate     VariationStatus = "LATE"
	VariationStatusOffRoute VariationStatus = "OFF_ROUTE"
	VariationStatusUnknown  VariationStatus = "UNKNOWN"
)

// ClassifyVariation buckets an observed time against a scheduled time.
// Without both times the status is UNKNOWN.
func ClassifyVariation(scheduled time.Time, observed time.Time, onTimeTolerance time.Duration) (VariationStatus, int) {
	if scheduled.IsZero() || observed.IsZero() {
		return VariationStatusUnknown, 0
	}

	delta := observed.Sub(scheduled)
	deltaMinutes := int(delta.Round(time.Minute) / time.Minute)

	switch {
	case absDuration(delta) <= onTimeTolerance:
		return VariationStatusOnTime, deltaMinutes
	case delta > 0:
		return VariationStatusLate, deltaMinutes
	default:
		return VariationStatusEarly, deltaMinutes
	}
}

type TrainWaypoint struct {
	Tiploc string `groups:"basic"`
	CRS    string `groups:"basic"`
	Berth  string `groups:"detailed"`

	ScheduledTime time.Time `groups:"basic"`
	Platform      string    `groups:"basic"`

	EstimatedTime time.Time `groups:"basic"`
	ActualTime    time.Time `groups:"basic"`

	Cancelled bool `groups:"basic"`
}

// Key identifies a waypoint for merging: same place at the same scheduled time
func (w *TrainWaypoint) Key() string {
	place := w.Tiploc
	if place == "" {
		place = w.CRS
	}
	if place == "" {
		place = w.Berth
	}

	return fmt.Sprintf("%s@%d", place, w.ScheduledTime.Unix())
}

// ObservedTime returns the best known running time at this waypoint, actual before estimated
func (w *TrainWaypoint) ObservedTime() time.Time {
	if !w.ActualTime.IsZero() {
		return w.ActualTime
	}

	return w.EstimatedTime
}
