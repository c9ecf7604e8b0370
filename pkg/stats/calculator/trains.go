package calculator

import (
	"context"

	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

type TrainStats struct {
	ServiceDate string

	Total          int
	TDActive       int
	ScheduleActive int
	MovementActive int
	AllActive      int

	VariationStatuses map[ctdf.VariationStatus]int
	Operators         map[string]int
}

// GetTrains counts the trains of one service day by tracking flag, latest variation and operator
func GetTrains(ctx context.Context, repository trainstore.Repository, serviceDate string) (TrainStats, error) {
	stats := TrainStats{
		ServiceDate:       serviceDate,
		VariationStatuses: map[ctdf.VariationStatus]int{},
		Operators:         map[string]int{},
	}

	trains, err := repository.FindMany(ctx, &ctdf.TrainFilter{ServiceDate: serviceDate},
		"tdactive", "scheduleactive", "movementactive", "operatorref", "lastmovement.variationstatus")
	if err != nil {
		return stats, err
	}

	for _, train := range trains {
		stats.Total++

		if train.TDActive {
			stats.TDActive++
		}
		if train.ScheduleActive {
			stats.ScheduleActive++
		}
		if train.MovementActive {
			stats.MovementActive++
		}
		if train.TDActive && train.ScheduleActive && train.MovementActive {
			stats.AllActive++
		}

		variationStatus := ctdf.VariationStatusUnknown
		if train.LastMovement != nil && train.LastMovement.VariationStatus != "" {
			variationStatus = train.LastMovement.VariationStatus
		}
		stats.VariationStatuses[variationStatus]++

		if train.OperatorRef != "" {
			stats.Operators[train.OperatorRef]++
		}
	}

	return stats, nil
}
