package ctdf

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// TrainFilter is a conjunction of field predicates over trains. Zero valued fields are ignored.
type TrainFilter struct {
	PrimaryIdentifier string
	// Train holds this identity key
	IdentityKey string

	ServiceDate       string
	ServiceDateBefore string

	Headcode  string
	ServiceID string
	TrainUID  string

	TDActive       *bool
	MovementActive *bool
	ScheduleActive *bool
	Archived       *bool

	// Route calls at CRS with a scheduled time inside [WindowFrom, WindowTo]
	CRS        string
	WindowFrom time.Time
	WindowTo   time.Time

	// Last TD report at or before this instant
	LastTDNotAfter time.Time
}

func Bool(b bool) *bool {
	return &b
}

func (f *TrainFilter) ToBson() bson.M {
	query := bson.M{}

	if f.PrimaryIdentifier != "" {
		query["primaryidentifier"] = f.PrimaryIdentifier
	}
	if f.IdentityKey != "" {
		query["identitykeys"] = f.IdentityKey
	}

	if f.ServiceDate != "" {
		query["servicedate"] = f.ServiceDate
	} else if f.ServiceDateBefore != "" {
		query["servicedate"] = bson.M{"$lt": f.ServiceDateBefore}
	}

	if f.Headcode != "" {
		query["headcode"] = f.Headcode
	}
	if f.ServiceID != "" {
		query["serviceid"] = f.ServiceID
	}
	if f.TrainUID != "" {
		query["trainuid"] = f.TrainUID
	}

	if f.TDActive != nil {
		query["tdactive"] = *f.TDActive
	}
	if f.MovementActive != nil {
		query["movementactive"] = *f.MovementActive
	}
	if f.ScheduleActive != nil {
		query["scheduleactive"] = *f.ScheduleActive
	}
	if f.Archived != nil {
		query["archived"] = *f.Archived
	}

	if f.CRS != "" {
		waypointMatch := bson.M{"crs": f.CRS}
		scheduled := bson.M{}
		if !f.WindowFrom.IsZero() {
			scheduled["$gte"] = f.WindowFrom
		}
		if !f.WindowTo.IsZero() {
			scheduled["$lte"] = f.WindowTo
		}
		if len(scheduled) > 0 {
			waypointMatch["scheduledtime"] = scheduled
		}

		query["route"] = bson.M{"$elemMatch": waypointMatch}
	}

	if !f.LastTDNotAfter.IsZero() {
		query["lasttdtime"] = bson.M{"$lte": f.LastTDNotAfter}
	}

	return query
}

// Matches evaluates the filter in process, mirroring ToBson
func (f *TrainFilter) Matches(train *Train) bool {
	if train == nil {
		return false
	}

	if f.PrimaryIdentifier != "" && train.PrimaryIdentifier != f.PrimaryIdentifier {
		return false
	}
	if f.IdentityKey != "" && !train.HoldsIdentityKey(f.IdentityKey) {
		return false
	}

	if f.ServiceDate != "" {
		if train.ServiceDate != f.ServiceDate {
			return false
		}
	} else if f.ServiceDateBefore != "" && !(train.ServiceDate < f.ServiceDateBefore) {
		return false
	}

	if f.Headcode != "" && train.Headcode != f.Headcode {
		return false
	}
	if f.ServiceID != "" && train.ServiceID != f.ServiceID {
		return false
	}
	if f.TrainUID != "" && train.TrainUID != f.TrainUID {
		return false
	}

	if f.TDActive != nil && train.TDActive != *f.TDActive {
		return false
	}
	if f.MovementActive != nil && train.MovementActive != *f.MovementActive {
		return false
	}
	if f.ScheduleActive != nil && train.ScheduleActive != *f.ScheduleActive {
		return false
	}
	if f.Archived != nil && train.Archived != *f.Archived {
		return false
	}

	if f.CRS != "" && !f.routeMatches(train) {
		return false
	}

	if !f.LastTDNotAfter.IsZero() && train.LastTDTime.After(f.LastTDNotAfter) {
		return false
	}

	return true
}

func (f *TrainFilter) routeMatches(train *Train) bool {
	for _, waypoint := range train.Route {
		if waypoint.CRS != f.CRS {
			continue
		}
		if !f.WindowFrom.IsZero() && waypoint.ScheduledTime.Before(f.WindowFrom) {
			continue
		}
		if !f.WindowTo.IsZero() && waypoint.ScheduledTime.After(f.WindowTo) {
			continue
		}

		return true
	}

	return false
}
