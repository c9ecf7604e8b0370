package darwin

import (
	"context"

	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
)

type PushPortData struct {
	Schedules     []Schedule
	TrainStatuses []TrainStatus
}

// Events converts a push port update into train events. Schedules come first so the status updates in the
// same frame resolve onto them.
func (p *PushPortData) Events(ctx context.Context, stations railutils.StationLookup) []ctdf.TrainEvent {
	var events []ctdf.TrainEvent

	for _, schedule := range p.Schedules {
		events = append(events, schedule.Events(ctx, stations)...)
	}

	for _, trainStatus := range p.TrainStatuses {
		events = append(events, trainStatus.Events(ctx, stations)...)
	}

	return events
}
