package trainstatus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/trainstore"
	"github.com/travigo/trainstatus/pkg/util"
)

func seedTrains(t *testing.T, trains ...*ctdf.Train) *trainstore.MemoryRepository {
	repository := trainstore.NewMemoryRepository()

	for _, train := range trains {
		_, err := repository.Upsert(context.Background(), train)
		require.NoError(t, err)
	}

	return repository
}

func callingTrain(id string, headcode string, crs string, scheduled time.Time) *ctdf.Train {
	return &ctdf.Train{
		PrimaryIdentifier: id,
		Headcode:          headcode,
		ServiceDate:       "2024-06-03",
		Route:             []*ctdf.TrainWaypoint{{CRS: crs, ScheduledTime: scheduled}},
	}
}

func TestIdentifyByServiceID(t *testing.T) {
	repository := seedTrains(t,
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:A", Headcode: "1A23", ServiceDate: "2024-06-03"},
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:B", Headcode: "1A23", ServiceDate: "2024-06-03", ServiceID: "202406031234567"},
	)
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	train, method, err := identifier.Identify(context.Background(), &ctdf.TrainEvent{
		Source:      ctdf.TrainEventSourceDarwin,
		Headcode:    "1A23",
		ServiceID:   "202406031234567",
		ServiceDate: "2024-06-03",
	})
	require.NoError(t, err)
	require.NotNil(t, train)

	assert.Equal(t, "GB:TRAIN:B", train.PrimaryIdentifier)
	assert.Equal(t, ResolutionServiceID, method)
}

func TestIdentifyByTrainUID(t *testing.T) {
	repository := seedTrains(t,
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:A", TrainUID: "C12345", ServiceDate: "2024-06-03"},
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:B", TrainUID: "C12345", ServiceDate: "2024-06-04"},
	)
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	train, method, err := identifier.Identify(context.Background(), &ctdf.TrainEvent{
		Source:      ctdf.TrainEventSourceSchedule,
		TrainUID:    "C12345",
		ServiceDate: "2024-06-04",
	})
	require.NoError(t, err)
	require.NotNil(t, train)

	assert.Equal(t, "GB:TRAIN:B", train.PrimaryIdentifier)
	assert.Equal(t, ResolutionTrainUID, method)
}

func TestIdentifyByHeadcodeSkipsConflicts(t *testing.T) {
	repository := seedTrains(t,
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:A", Headcode: "1A23", ServiceDate: "2024-06-03", ServiceID: "202406030000001"},
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:B", Headcode: "1A23", ServiceDate: "2024-06-03"},
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:C", Headcode: "1A23", ServiceDate: "2024-06-02"},
	)
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	train, method, err := identifier.Identify(context.Background(), &ctdf.TrainEvent{
		Source:      ctdf.TrainEventSourceDarwin,
		Headcode:    "1A23",
		ServiceID:   "202406030000002",
		ServiceDate: "2024-06-03",
	})
	require.NoError(t, err)
	require.NotNil(t, train)

	assert.Equal(t, "GB:TRAIN:B", train.PrimaryIdentifier)
	assert.Equal(t, ResolutionHeadcode, method)
}

func TestIdentifyByHeadcodePrefersScheduled(t *testing.T) {
	scheduled := &ctdf.Train{PrimaryIdentifier: "GB:TRAIN:Z", Headcode: "1A23", ServiceDate: "2024-06-03", ScheduleActive: true}
	repository := seedTrains(t,
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:A", Headcode: "1A23", ServiceDate: "2024-06-03"},
		scheduled,
	)
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	train, _, err := identifier.Identify(context.Background(), &ctdf.TrainEvent{
		Source:      ctdf.TrainEventSourceTD,
		Headcode:    "1A23",
		ServiceDate: "2024-06-03",
	})
	require.NoError(t, err)

	assert.Equal(t, "GB:TRAIN:Z", train.PrimaryIdentifier)
}

func TestIdentifyByStationCall(t *testing.T) {
	repository := seedTrains(t,
		callingTrain("GB:TRAIN:A", "1A23", "KGX", baseTime.Add(10*time.Minute)),
		callingTrain("GB:TRAIN:B", "", "KGX", baseTime.Add(2*time.Minute)),
		callingTrain("GB:TRAIN:C", "2B45", "KGX", baseTime),
		callingTrain("GB:TRAIN:D", "", "KGX", baseTime.Add(time.Hour)),
	)
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	// Headcode 1A23 excludes C, D is outside the window, B is closer than A
	train, method, err := identifier.Identify(context.Background(), &ctdf.TrainEvent{
		Source:        ctdf.TrainEventSourceDarwin,
		Headcode:      "1A23",
		CRS:           "KGX",
		ServiceDate:   "2024-06-04",
		ScheduledTime: baseTime,
	})
	require.NoError(t, err)
	require.NotNil(t, train)

	assert.Equal(t, "GB:TRAIN:B", train.PrimaryIdentifier)
	assert.Equal(t, ResolutionCall, method)
}

func TestIdentifyByStationCallDeterministic(t *testing.T) {
	repository := seedTrains(t,
		callingTrain("GB:TRAIN:B", "", "KGX", baseTime.Add(5*time.Minute)),
		callingTrain("GB:TRAIN:A", "", "KGX", baseTime.Add(-5*time.Minute)),
		callingTrain("GB:TRAIN:C", "", "KGX", baseTime.Add(5*time.Minute)),
	)
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	event := &ctdf.TrainEvent{
		Source:        ctdf.TrainEventSourceDarwin,
		CRS:           "KGX",
		ServiceDate:   "2024-06-03",
		ScheduledTime: baseTime,
	}

	for i := 0; i < 10; i++ {
		train, _, err := identifier.Identify(context.Background(), event)
		require.NoError(t, err)
		assert.Equal(t, "GB:TRAIN:A", train.PrimaryIdentifier)
	}
}

func TestIdentifyTDNeverMatchesByStation(t *testing.T) {
	repository := seedTrains(t, callingTrain("GB:TRAIN:A", "", "KGX", baseTime))
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	train, method, err := identifier.Identify(context.Background(), &ctdf.TrainEvent{
		Source:        ctdf.TrainEventSourceTD,
		Headcode:      "1A23",
		CRS:           "KGX",
		ServiceDate:   "2024-06-03",
		ScheduledTime: baseTime,
	})
	require.NoError(t, err)

	assert.Nil(t, train)
	assert.Equal(t, ResolutionNone, method)
}

func TestIdentifyIgnoresArchived(t *testing.T) {
	repository := seedTrains(t,
		&ctdf.Train{PrimaryIdentifier: "GB:TRAIN:A", Headcode: "1A23", ServiceDate: "2024-06-03", Archived: true},
	)
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	train, method, err := identifier.Identify(context.Background(), &ctdf.TrainEvent{
		Source:      ctdf.TrainEventSourceTD,
		Headcode:    "1A23",
		ServiceDate: "2024-06-03",
	})
	require.NoError(t, err)

	assert.Nil(t, train)
	assert.Equal(t, ResolutionNone, method)
}

func TestIdentifyMalformed(t *testing.T) {
	identifier := &Identifier{Repository: trainstore.NewMemoryRepository(), Config: DefaultConfig()}

	_, _, err := identifier.Identify(context.Background(), &ctdf.TrainEvent{
		Source:      ctdf.TrainEventSourceTD,
		ServiceDate: "2024-06-03",
		Payload:     ctdf.TrainEventPayload{Berth: "B1"},
	})
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestIdentifyTDOvernight(t *testing.T) {
	london := util.LondonLocation()
	midnight := time.Date(2024, time.June, 4, 0, 0, 0, 0, london)

	repository := seedTrains(t,
		&ctdf.Train{
			PrimaryIdentifier: "GB:TRAIN:TRACKED",
			Headcode:          "1A23",
			ServiceDate:       "2024-06-03",
			TDActive:          true,
			LastTDTime:        midnight.Add(-5 * time.Minute),
		},
		&ctdf.Train{
			PrimaryIdentifier: "GB:TRAIN:SCHEDULED",
			Headcode:          "2B45",
			ServiceDate:       "2024-06-03",
			Route:             []*ctdf.TrainWaypoint{{CRS: "EDB", ScheduledTime: midnight.Add(40 * time.Minute)}},
		},
		&ctdf.Train{
			PrimaryIdentifier: "GB:TRAIN:FINISHED",
			Headcode:          "3C67",
			ServiceDate:       "2024-06-03",
			TDActive:          true,
			LastTDTime:        midnight.Add(-3 * time.Hour),
			Route:             []*ctdf.TrainWaypoint{{CRS: "KGX", ScheduledTime: midnight.Add(-3 * time.Hour)}},
		},
	)
	identifier := &Identifier{Repository: repository, Config: DefaultConfig()}

	identify := func(source ctdf.TrainEventSource, headcode string) *ctdf.Train {
		event := ctdf.TrainEvent{
			Source:       source,
			Headcode:     headcode,
			ObservedTime: midnight.Add(2 * time.Minute),
		}.Normalize()
		require.Equal(t, "2024-06-04", event.ServiceDate)

		train, _, err := identifier.Identify(context.Background(), &event)
		require.NoError(t, err)
		return train
	}

	tracked := identify(ctdf.TrainEventSourceTD, "1A23")
	require.NotNil(t, tracked)
	assert.Equal(t, "GB:TRAIN:TRACKED", tracked.PrimaryIdentifier)

	scheduled := identify(ctdf.TrainEventSourceTD, "2B45")
	require.NotNil(t, scheduled)
	assert.Equal(t, "GB:TRAIN:SCHEDULED", scheduled.PrimaryIdentifier)

	assert.Nil(t, identify(ctdf.TrainEventSourceTD, "3C67"))

	// Darwin carries its own service date
	assert.Nil(t, identify(ctdf.TrainEventSourceDarwin, "1A23"))
}
