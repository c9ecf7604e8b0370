package ctdf

import (
	"sort"
	"time"
)

// StationBoardEntry is one call of a train at a station
type StationBoardEntry struct {
	Train    *Train         `groups:"basic"`
	Waypoint *TrainWaypoint `groups:"basic"`

	VariationStatus VariationStatus `groups:"basic"`
	DelayMinutes    int             `groups:"basic"`
	Cancelled       bool            `groups:"basic"`
}

// TrainStatusSummary is the reduced view returned for the all-active status list
type TrainStatusSummary struct {
	PrimaryIdentifier string          `groups:"basic"`
	Headcode          string          `groups:"basic"`
	VariationStatus   VariationStatus `groups:"basic"`
}

// GenerateStationBoard builds the board for every call at crs scheduled inside [from, to].
// Calls with no realtime information are UNKNOWN.
func GenerateStationBoard(trains []*Train, crs string, from time.Time, to time.Time, onTimeTolerance time.Duration) []*StationBoardEntry {
	board := []*StationBoardEntry{}

	for _, train := range trains {
		summary := train.Copy()
		summary.Route = nil

		for _, waypoint := range train.Route {
			if waypoint.CRS != crs {
				continue
			}
			if waypoint.ScheduledTime.Before(from) || waypoint.ScheduledTime.After(to) {
				continue
			}

			entry := &StationBoardEntry{
				Train:           summary,
				Waypoint:        waypoint,
				VariationStatus: VariationStatusUnknown,
				Cancelled:       waypoint.Cancelled,
			}

			if observed := waypoint.ObservedTime(); !observed.IsZero() {
				entry.VariationStatus, entry.DelayMinutes = ClassifyVariation(waypoint.ScheduledTime, observed, onTimeTolerance)
			} else if train.LastMovement != nil && train.LastMovement.CRS == crs {
				entry.VariationStatus = train.LastMovement.VariationStatus
				entry.DelayMinutes = train.LastMovement.DeltaMinutes
			}

			board = append(board, entry)
		}
	}

	sort.SliceStable(board, func(i, j int) bool {
		a, b := board[i], board[j]
		if !a.Waypoint.ScheduledTime.Equal(b.Waypoint.ScheduledTime) {
			return a.Waypoint.ScheduledTime.Before(b.Waypoint.ScheduledTime)
		}
		return a.Train.PrimaryIdentifier < b.Train.PrimaryIdentifier
	})

	return board
}

// FilterDelayed keeps the entries running late
func FilterDelayed(board []*StationBoardEntry) []*StationBoardEntry {
	delayed := []*StationBoardEntry{}

	for _, entry := range board {
		if entry.DelayMinutes > 0 {
			delayed = append(delayed, entry)
		}
	}

	return delayed
}
