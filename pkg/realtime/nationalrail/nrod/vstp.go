package nrod

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
	"github.com/travigo/trainstatus/pkg/util"
)

type VSTPMessage struct {
	VSTP struct {
		MessageID string `json:"originMsgId"`
		Owner     string `json:"owner"`
		Timestamp string `json:"timestamp"`

		Schedule struct {
			ScheduleSegment []ScheduleSegment `json:"schedule_segment"`

			TransactionType string `json:"transaction_type"`
			TrainStatus     string `json:"train_status"`
			TrainUID        string `json:"CIF_train_uid"`
			STP             string `json:"CIF_stp_indicator"`
			Timetable       string `json:"applicable_timetable"`

			StartDate string `json:"schedule_start_date"`
			EndDate   string `json:"schedule_end_date"`
			DayRuns   string `json:"schedule_days_runs"`
		} `json:"schedule"`
	} `json:"VSTPCIFMsgV1"`
}

type ScheduleSegment struct {
	ScheduleLocations []ScheduleLocation `json:"schedule_location"`

	SignallingID     string `json:"signalling_id"`
	TrainServiceCode string `json:"CIF_train_service_code"`
	TrainCategory    string `json:"CIF_train_category"`
	ATOCCode         string `json:"atoc_code"`
}

type ScheduleLocation struct {
	Location               ScheduleLocationLocation `json:"location"`
	ScheduledPassTime      string                   `json:"scheduled_pass_time"`
	ScheduledDepartureTime string                   `json:"scheduled_departure_time"`
	ScheduledArrivalTime   string                   `json:"scheduled_arrival_time"`
	Activity               string                   `json:"CIF_activity"`
	Platform               string                   `json:"CIF_platform"`
}

type ScheduleLocationLocation struct {
	Tiploc struct {
		ID string `json:"tiploc_id"`
	} `json:"tiploc"`
}

func ParseVSTPMessage(messageBytes []byte) (*VSTPMessage, error) {
	var message VSTPMessage
	if err := json.Unmarshal(messageBytes, &message); err != nil {
		return nil, err
	}

	return &message, nil
}

// Events builds one schedule event per day the schedule runs, limited to today and tomorrow
func (v *VSTPMessage) Events(ctx context.Context, stations railutils.StationLookup, now time.Time) []ctdf.TrainEvent {
	schedule := v.VSTP.Schedule
	trainUID := strings.TrimSpace(schedule.TrainUID)

	switch schedule.TransactionType {
	case "Create":
	case "Delete":
		// Schedules never turn inactive within a service day
		log.Info().Str("trainuid", trainUID).Str("start", schedule.StartDate).Msg("Ignoring VSTP delete")
		return nil
	default:
		log.Error().Str("transaction", schedule.TransactionType).Msg("Unhandled VSTP transaction")
		return nil
	}

	if len(schedule.ScheduleSegment) == 0 {
		return nil
	}
	segment := schedule.ScheduleSegment[0]

	startDate, err := util.ParseServiceDate(schedule.StartDate)
	if err != nil {
		log.Error().Err(err).Str("trainuid", trainUID).Msg("Invalid VSTP start date")
		return nil
	}
	endDate, err := util.ParseServiceDate(schedule.EndDate)
	if err != nil {
		log.Error().Err(err).Str("trainuid", trainUID).Msg("Invalid VSTP end date")
		return nil
	}

	today, _ := util.ParseServiceDate(util.ServiceDate(now))
	tomorrow := today.AddDate(0, 0, 1)

	var events []ctdf.TrainEvent

	for _, day := range []time.Time{today, tomorrow} {
		if day.Before(startDate) || day.After(endDate) || !runsOn(schedule.DayRuns, day) {
			continue
		}

		serviceDate := day.Format(util.ServiceDateFormat)
		route := buildRoute(ctx, stations, serviceDate, segment.ScheduleLocations)
		if len(route) == 0 {
			continue
		}

		event := ctdf.TrainEvent{
			Source:        ctdf.TrainEventSourceSchedule,
			Headcode:      segment.SignallingID,
			TrainUID:      trainUID,
			CRS:           route[0].CRS,
			ServiceDate:   serviceDate,
			ScheduledTime: route[0].ScheduledTime,
			Payload: ctdf.TrainEventPayload{
				OperatorRef: segment.ATOCCode,
				Route:       route,
			},
		}

		events = append(events, event.Normalize())
	}

	return events
}

// runsOn reads the Monday first days run mask
func runsOn(dayRuns string, day time.Time) bool {
	index := (int(day.Weekday()) + 6) % 7
	if index >= len(dayRuns) {
		return false
	}

	return dayRuns[index] == '1'
}

func buildRoute(ctx context.Context, stations railutils.StationLookup, serviceDate string, locations []ScheduleLocation) []*ctdf.TrainWaypoint {
	var route []*ctdf.TrainWaypoint
	var previous time.Time

	for _, location := range locations {
		timeOfDay := firstTime(location.ScheduledDepartureTime, location.ScheduledArrivalTime, location.ScheduledPassTime)
		if timeOfDay == "" {
			continue
		}

		scheduled, err := util.ParseRailTime(serviceDate, timeOfDay)
		if err != nil {
			log.Debug().Err(err).Str("time", timeOfDay).Msg("Invalid VSTP location time")
			continue
		}
		scheduled = util.RollOver(scheduled, previous)
		previous = scheduled

		tiploc := strings.TrimSpace(location.Location.Tiploc.ID)

		route = append(route, &ctdf.TrainWaypoint{
			Tiploc:        tiploc,
			CRS:           stations.CRS(ctx, tiploc),
			ScheduledTime: scheduled,
			Platform:      strings.TrimSpace(location.Platform),
		})
	}

	return route
}

func firstTime(times ...string) string {
	for _, timeOfDay := range times {
		timeOfDay = strings.TrimSpace(timeOfDay)
		if timeOfDay != "" {
			return timeOfDay
		}
	}

	return ""
}
