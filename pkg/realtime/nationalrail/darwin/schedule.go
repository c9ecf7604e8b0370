package darwin

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
	"github.com/travigo/trainstatus/pkg/util"
)

type Schedule struct {
	RID     string `xml:"rid,attr"`
	UID     string `xml:"uid,attr"`
	TrainID string `xml:"trainId,attr"`
	SSD     string `xml:"ssd,attr"`
	TOC     string `xml:"toc,attr"`

	CancelReason string `xml:"cancelReason"`

	Origin       ScheduleStop   `xml:"OR"`
	Intermediate []ScheduleStop `xml:"IP"`
	Destination  ScheduleStop   `xml:"DT"`
}

type ScheduleStop struct {
	Tiploc   string `xml:"tpl,attr"`
	Activity string `xml:"act,attr"`

	PublicDeparture  string `xml:"ptd,attr"`
	WorkingDeparture string `xml:"wtd,attr"`

	PublicArrival  string `xml:"pta,attr"`
	WorkingArrival string `xml:"wta,attr"`

	Cancelled string `xml:"can,attr"`
}

func (s *Schedule) stops() []ScheduleStop {
	stops := []ScheduleStop{s.Origin}
	stops = append(stops, s.Intermediate...)
	stops = append(stops, s.Destination)

	return stops
}

// Events returns the schedule itself plus a Darwin event for every cancelled call
func (s *Schedule) Events(ctx context.Context, stations railutils.StationLookup) []ctdf.TrainEvent {
	var route []*ctdf.TrainWaypoint
	var cancelled []*ctdf.TrainWaypoint
	var previous time.Time

	for _, stop := range s.stops() {
		if stop.Tiploc == "" {
			continue
		}

		timeOfDay := firstNonEmpty(stop.PublicDeparture, stop.WorkingDeparture, stop.PublicArrival, stop.WorkingArrival)
		if timeOfDay == "" {
			continue
		}

		scheduled, err := util.ParseRailTime(s.SSD, timeOfDay)
		if err != nil {
			log.Debug().Err(err).Str("rid", s.RID).Str("time", timeOfDay).Msg("Invalid Darwin schedule time")
			continue
		}
		scheduled = util.RollOver(scheduled, previous)
		previous = scheduled

		waypoint := &ctdf.TrainWaypoint{
			Tiploc:        stop.Tiploc,
			CRS:           stations.CRS(ctx, stop.Tiploc),
			ScheduledTime: scheduled,
		}
		route = append(route, waypoint)

		if stop.Cancelled == "true" && waypoint.CRS != "" {
			cancelled = append(cancelled, waypoint)
		}
	}

	if len(route) == 0 {
		return nil
	}

	scheduleEvent := ctdf.TrainEvent{
		Source:        ctdf.TrainEventSourceSchedule,
		Headcode:      s.TrainID,
		ServiceID:     s.RID,
		TrainUID:      s.UID,
		CRS:           route[0].CRS,
		ServiceDate:   s.SSD,
		ScheduledTime: route[0].ScheduledTime,
		Payload: ctdf.TrainEventPayload{
			OperatorRef: s.TOC,
			Route:       route,
		},
	}

	events := []ctdf.TrainEvent{scheduleEvent.Normalize()}

	for _, waypoint := range cancelled {
		cancellation := ctdf.TrainEvent{
			Source:        ctdf.TrainEventSourceDarwin,
			ServiceID:     s.RID,
			TrainUID:      s.UID,
			CRS:           waypoint.CRS,
			ServiceDate:   s.SSD,
			ScheduledTime: waypoint.ScheduledTime,
			Payload: ctdf.TrainEventPayload{
				Tiploc:    waypoint.Tiploc,
				Cancelled: true,
			},
		}

		events = append(events, cancellation.Normalize())
	}

	return events
}
