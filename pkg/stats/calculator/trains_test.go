package calculator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

func TestGetTrains(t *testing.T) {
	ctx := context.Background()
	repository := trainstore.NewMemoryRepository()

	for _, train := range []*ctdf.Train{
		{
			PrimaryIdentifier: "GB:TRAIN:A", ServiceDate: "2024-06-03", OperatorRef: "GR",
			TDActive: true, ScheduleActive: true, MovementActive: true,
			LastMovement: &ctdf.TrainMovement{VariationStatus: ctdf.VariationStatusLate},
		},
		{
			PrimaryIdentifier: "GB:TRAIN:B", ServiceDate: "2024-06-03", OperatorRef: "GR",
			ScheduleActive: true,
		},
		{
			PrimaryIdentifier: "GB:TRAIN:C", ServiceDate: "2024-06-03", OperatorRef: "TP",
			TDActive: true, MovementActive: true,
			LastMovement: &ctdf.TrainMovement{VariationStatus: ctdf.VariationStatusOnTime},
		},
		{
			PrimaryIdentifier: "GB:TRAIN:D", ServiceDate: "2024-06-02", TDActive: true,
		},
	} {
		_, err := repository.Upsert(ctx, train)
		require.NoError(t, err)
	}

	stats, err := GetTrains(ctx, repository, "2024-06-03")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.TDActive)
	assert.Equal(t, 2, stats.ScheduleActive)
	assert.Equal(t, 2, stats.MovementActive)
	assert.Equal(t, 1, stats.AllActive)
	assert.Equal(t, 1, stats.VariationStatuses[ctdf.VariationStatusLate])
	assert.Equal(t, 1, stats.VariationStatuses[ctdf.VariationStatusOnTime])
	assert.Equal(t, 1, stats.VariationStatuses[ctdf.VariationStatusUnknown])
	assert.Equal(t, map[string]int{"GR": 2, "TP": 1}, stats.Operators)
}
