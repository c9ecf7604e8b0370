package nrod

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/util"
)

type stationMap map[string]string

func (s stationMap) CRS(_ context.Context, tiploc string) string {
	return s[tiploc]
}

var testStations = stationMap{"KNGX": "KGX", "YORK": "YRK", "EDINBUR": "EDB"}

func vstpFrame(transaction string, dayRuns string, locations string) []byte {
	return []byte(fmt.Sprintf(`{
		"VSTPCIFMsgV1": {
			"originMsgId": "2024-06-03T08:00:00-00:00",
			"schedule": {
				"transaction_type": %q,
				"CIF_train_uid": " W12345",
				"CIF_stp_indicator": "N",
				"schedule_start_date": "2024-06-01",
				"schedule_end_date": "2024-06-30",
				"schedule_days_runs": %q,
				"schedule_segment": [{
					"signalling_id": "1A23",
					"atoc_code": "GR",
					"schedule_location": [%s]
				}]
			}
		}
	}`, transaction, dayRuns, locations))
}

const kingsCrossToYork = `
	{"location": {"tiploc": {"tiploc_id": "KNGX"}}, "scheduled_departure_time": "100000", "CIF_platform": "1"},
	{"location": {"tiploc": {"tiploc_id": "PBRO"}}, "scheduled_pass_time": "105030"},
	{"location": {"tiploc": {"tiploc_id": "YORK"}}, "scheduled_arrival_time": "115200"}`

var vstpNow = time.Date(2024, time.June, 3, 7, 0, 0, 0, time.UTC)

func TestVSTPCreateEvents(t *testing.T) {
	assert := assert.New(t)

	message, err := ParseVSTPMessage(vstpFrame("Create", "1111111", kingsCrossToYork))
	require.NoError(t, err)

	events := message.Events(context.Background(), testStations, vstpNow)
	require.Len(t, events, 2)

	today := events[0]
	assert.Equal(ctdf.TrainEventSourceSchedule, today.Source)
	assert.Equal("1A23", today.Headcode)
	assert.Equal("W12345", today.TrainUID)
	assert.Equal("2024-06-03", today.ServiceDate)
	assert.Equal("KGX", today.CRS)
	assert.Equal("GR", today.Payload.OperatorRef)

	departure, _ := util.ParseRailTime("2024-06-03", "10:00")
	assert.True(departure.Equal(today.ScheduledTime))

	require.Len(t, today.Payload.Route, 3)
	assert.Equal("1", today.Payload.Route[0].Platform)
	assert.Equal("PBRO", today.Payload.Route[1].Tiploc)
	assert.Empty(today.Payload.Route[1].CRS)
	assert.Equal(30, today.Payload.Route[1].ScheduledTime.Second())
	assert.Equal("YRK", today.Payload.Route[2].CRS)

	assert.Equal("2024-06-04", events[1].ServiceDate)
}

func TestVSTPDayRuns(t *testing.T) {
	// 2024-06-03 is a Monday
	message, err := ParseVSTPMessage(vstpFrame("Create", "1000000", kingsCrossToYork))
	require.NoError(t, err)

	events := message.Events(context.Background(), testStations, vstpNow)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-06-03", events[0].ServiceDate)

	sunday := time.Date(2024, time.June, 9, 7, 0, 0, 0, time.UTC)
	message, err = ParseVSTPMessage(vstpFrame("Create", "0000001", kingsCrossToYork))
	require.NoError(t, err)

	events = message.Events(context.Background(), testStations, sunday)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-06-09", events[0].ServiceDate)
}

func TestVSTPOvernight(t *testing.T) {
	message, err := ParseVSTPMessage(vstpFrame("Create", "1111111", `
		{"location": {"tiploc": {"tiploc_id": "KNGX"}}, "scheduled_departure_time": "235000"},
		{"location": {"tiploc": {"tiploc_id": "EDINBUR"}}, "scheduled_arrival_time": "041500"}`))
	require.NoError(t, err)

	events := message.Events(context.Background(), testStations, vstpNow)
	require.NotEmpty(t, events)

	route := events[0].Payload.Route
	require.Len(t, route, 2)
	assert.True(t, route[1].ScheduledTime.After(route[0].ScheduledTime))
	assert.Equal(t, "2024-06-04", util.ServiceDate(route[1].ScheduledTime))
}

func TestVSTPDeleteIgnored(t *testing.T) {
	message, err := ParseVSTPMessage(vstpFrame("Delete", "1111111", kingsCrossToYork))
	require.NoError(t, err)

	assert.Empty(t, message.Events(context.Background(), testStations, vstpNow))
}

func TestVSTPClientHandleMessage(t *testing.T) {
	publisher := &recordingPublisher{}
	client := &VSTPClient{
		Publisher: publisher,
		Stations:  testStations,
		Now:       func() time.Time { return vstpNow },
	}

	client.HandleMessage(context.Background(), vstpFrame("Create", "1111111", kingsCrossToYork))

	assert.Len(t, publisher.events, 2)
}
