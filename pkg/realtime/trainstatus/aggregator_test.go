package trainstatus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/trainstatus/pkg/ctdf"
)

var baseTime = time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

func scheduledTrain() *ctdf.Train {
	return &ctdf.Train{
		PrimaryIdentifier: "GB:TRAIN:TEST",
		Headcode:          "1A23",
		ServiceDate:       "2024-06-03",
		ScheduleActive:    true,
		Route: []*ctdf.TrainWaypoint{
			{Tiploc: "KNGX", CRS: "KGX", ScheduledTime: baseTime.Add(time.Hour)},
			{Tiploc: "YORK", CRS: "YRK", ScheduledTime: baseTime.Add(3 * time.Hour)},
		},
	}
}

func darwinEvent(crs string, scheduled time.Time, observed time.Time) *ctdf.TrainEvent {
	event := ctdf.TrainEvent{
		Source:        ctdf.TrainEventSourceDarwin,
		CRS:           crs,
		ScheduledTime: scheduled,
		ObservedTime:  observed,
	}.Normalize()

	return &event
}

func TestAggregateTD(t *testing.T) {
	assert := assert.New(t)
	config := DefaultConfig()

	train := &ctdf.Train{PrimaryIdentifier: "GB:TRAIN:TEST"}
	event := &ctdf.TrainEvent{
		Source:       ctdf.TrainEventSourceTD,
		Headcode:     "1A23",
		ServiceDate:  "2024-06-03",
		ObservedTime: baseTime,
		Payload:      ctdf.TrainEventPayload{Area: "AW", Berth: "AW:B1"},
	}

	updated, changes, err := Aggregate(train, event, config)
	require.NoError(t, err)

	assert.True(changes.Changed)
	assert.True(changes.TDActivated)
	assert.True(updated.TDActive)
	assert.False(updated.MovementActive)
	assert.Equal("AW:B1", updated.LastBerth)
	assert.Equal(baseTime, updated.LastTDTime)
	assert.Equal("1A23", updated.Headcode)

	// Input is untouched
	assert.False(train.TDActive)
	assert.Empty(train.Headcode)

	final := *event
	final.ObservedTime = baseTime.Add(time.Minute)
	final.Payload.FinalBerth = true

	finished, changes, err := Aggregate(updated, &final, config)
	require.NoError(t, err)

	assert.True(changes.TDDeactivated)
	assert.False(finished.TDActive)
}

func TestAggregateTDReplayIsStale(t *testing.T) {
	assert := assert.New(t)

	train := &ctdf.Train{PrimaryIdentifier: "GB:TRAIN:TEST", Headcode: "1A23", LastTDTime: baseTime}
	event := &ctdf.TrainEvent{Source: ctdf.TrainEventSourceTD, Headcode: "1A23", ObservedTime: baseTime}

	updated, changes, err := Aggregate(train, event, DefaultConfig())
	require.NoError(t, err)

	assert.True(changes.Stale)
	assert.False(changes.Changed)
	assert.False(updated.TDActive)
}

func TestAggregateScheduleMergesRoute(t *testing.T) {
	assert := assert.New(t)

	train := &ctdf.Train{
		PrimaryIdentifier: "GB:TRAIN:TEST",
		Headcode:          "1A23",
		TDActive:          true,
		Route: []*ctdf.TrainWaypoint{
			{CRS: "YRK", ScheduledTime: baseTime.Add(3 * time.Hour), Platform: "9"},
		},
	}
	event := &ctdf.TrainEvent{
		Source:   ctdf.TrainEventSourceSchedule,
		Headcode: "1A23",
		Payload: ctdf.TrainEventPayload{
			Route: []*ctdf.TrainWaypoint{
				{CRS: "PBO", ScheduledTime: baseTime.Add(2 * time.Hour)},
				{CRS: "KGX", ScheduledTime: baseTime.Add(time.Hour), Platform: "1"},
				{CRS: "YRK", ScheduledTime: baseTime.Add(3 * time.Hour), Platform: "3"},
			},
		},
	}

	updated, changes, err := Aggregate(train, event, DefaultConfig())
	require.NoError(t, err)

	assert.True(changes.ScheduleMatched)
	assert.True(updated.ScheduleActive)
	assert.True(updated.TDActive)

	require.Len(t, updated.Route, 3)
	assert.Equal("KGX", updated.Route[0].CRS)
	assert.Equal("PBO", updated.Route[1].CRS)
	assert.Equal("YRK", updated.Route[2].CRS)
	// Existing annotations are kept
	assert.Equal("9", updated.Route[2].Platform)

	// A second identical schedule is a no-op
	again, changes, err := Aggregate(updated, event, DefaultConfig())
	require.NoError(t, err)
	assert.False(changes.Changed)
	assert.False(changes.ScheduleMatched)
	assert.Equal(updated, again)
}

func TestAggregateDarwinLate(t *testing.T) {
	assert := assert.New(t)

	event := darwinEvent("KGX", baseTime.Add(time.Hour), baseTime.Add(time.Hour+6*time.Minute))

	updated, changes, err := Aggregate(scheduledTrain(), event, DefaultConfig())
	require.NoError(t, err)

	assert.True(changes.Changed)
	assert.True(changes.VariationChanged)
	assert.True(updated.MovementActive)
	require.NotNil(t, updated.LastMovement)
	assert.Equal(ctdf.VariationStatusLate, updated.LastMovement.VariationStatus)
	assert.Equal(6, updated.LastMovement.DeltaMinutes)
	assert.Equal("KGX", updated.LastMovement.CRS)
	assert.Equal(baseTime.Add(time.Hour+6*time.Minute), updated.Route[0].ActualTime)
}

func TestAggregateDarwinIdempotent(t *testing.T) {
	event := darwinEvent("KGX", baseTime.Add(time.Hour), baseTime.Add(time.Hour+30*time.Second))

	once, _, err := Aggregate(scheduledTrain(), event, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, ctdf.VariationStatusOnTime, once.LastMovement.VariationStatus)

	twice, changes, err := Aggregate(once, event, DefaultConfig())
	require.NoError(t, err)

	assert.False(t, changes.Changed)
	assert.False(t, changes.VariationChanged)
	assert.Equal(t, once, twice)
}

func TestAggregateDarwinMonotonic(t *testing.T) {
	assert := assert.New(t)
	config := DefaultConfig()

	newer := darwinEvent("YRK", baseTime.Add(3*time.Hour), baseTime.Add(3*time.Hour+2*time.Minute))
	older := darwinEvent("KGX", baseTime.Add(time.Hour), baseTime.Add(time.Hour-2*time.Minute))

	train, _, err := Aggregate(scheduledTrain(), newer, config)
	require.NoError(t, err)

	updated, changes, err := Aggregate(train, older, config)
	require.NoError(t, err)

	assert.True(changes.Stale)
	assert.False(changes.VariationChanged)
	assert.Equal("YRK", updated.LastMovement.CRS)
	assert.Equal(ctdf.VariationStatusLate, updated.LastMovement.VariationStatus)
	// The late arriving report still annotates its waypoint
	assert.Equal(baseTime.Add(time.Hour-2*time.Minute), updated.Route[0].ActualTime)
}

func TestAggregateDarwinEstimateIsNotMovement(t *testing.T) {
	assert := assert.New(t)

	event := darwinEvent("KGX", baseTime.Add(time.Hour), baseTime.Add(time.Hour+4*time.Minute))
	event.Payload.Estimated = true
	event.Payload.Platform = "4"

	updated, changes, err := Aggregate(scheduledTrain(), event, DefaultConfig())
	require.NoError(t, err)

	assert.True(changes.Changed)
	assert.False(updated.MovementActive)
	assert.Nil(updated.LastMovement)
	assert.Equal("4", updated.Route[0].Platform)
	assert.Equal(baseTime.Add(time.Hour+4*time.Minute), updated.Route[0].EstimatedTime)
}

func TestAggregateDarwinSupersededForecast(t *testing.T) {
	assert := assert.New(t)
	config := DefaultConfig()

	train := scheduledTrain()
	train.Route[0].Platform = "2"
	train.Route[0].ActualTime = baseTime.Add(time.Hour + time.Minute)

	arrived := darwinEvent("YRK", baseTime.Add(3*time.Hour), baseTime.Add(3*time.Hour+2*time.Minute))
	train, _, err := Aggregate(train, arrived, config)
	require.NoError(t, err)

	forecast := darwinEvent("KGX", baseTime.Add(time.Hour), baseTime.Add(time.Hour+5*time.Minute))
	forecast.Payload.Estimated = true
	forecast.Payload.Platform = "9"

	updated, _, err := Aggregate(train, forecast, config)
	require.NoError(t, err)

	assert.Equal("2", updated.Route[0].Platform)
	assert.True(updated.Route[0].EstimatedTime.IsZero())
	assert.Equal("YRK", updated.LastMovement.CRS)

	// A departed waypoint keeps its actual time when a forecast arrives for it
	fresh := scheduledTrain()
	fresh.Route[0].ActualTime = baseTime.Add(time.Hour + time.Minute)

	late := darwinEvent("KGX", baseTime.Add(time.Hour), baseTime.Add(time.Hour+7*time.Minute))
	late.Payload.Estimated = true

	annotated, _, err := Aggregate(fresh, late, config)
	require.NoError(t, err)

	assert.True(annotated.Route[0].EstimatedTime.IsZero())
	assert.Equal(baseTime.Add(time.Hour+time.Minute), annotated.Route[0].ActualTime)
}

func TestAggregateDarwinOffRouteAndUnknown(t *testing.T) {
	assert := assert.New(t)

	offRoute := darwinEvent("PBO", baseTime.Add(2*time.Hour), baseTime.Add(2*time.Hour))
	updated, _, err := Aggregate(scheduledTrain(), offRoute, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(ctdf.VariationStatusOffRoute, updated.LastMovement.VariationStatus)

	unscheduled := &ctdf.TrainEvent{
		Source:       ctdf.TrainEventSourceDarwin,
		ServiceID:    "202406037654321",
		CRS:          "KGX",
		ObservedTime: baseTime,
	}
	bare := &ctdf.Train{PrimaryIdentifier: "GB:TRAIN:BARE"}
	updated, _, err = Aggregate(bare, unscheduled, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(ctdf.VariationStatusUnknown, updated.LastMovement.VariationStatus)
	assert.Equal("202406037654321", updated.ServiceID)
}

func TestAggregateKeepsBoundIdentifiers(t *testing.T) {
	train := scheduledTrain()
	train.ServiceID = "202406031111111"

	event := darwinEvent("KGX", baseTime.Add(time.Hour), baseTime.Add(time.Hour))
	event.ServiceID = "202406032222222"
	event.Headcode = "2B45"

	updated, _, err := Aggregate(train, event, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "202406031111111", updated.ServiceID)
	assert.Equal(t, "1A23", updated.Headcode)
}

func TestAggregateUnknownSource(t *testing.T) {
	_, _, err := Aggregate(scheduledTrain(), &ctdf.TrainEvent{Source: "Fax"}, DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
