package darwin

import (
	"bytes"
	"compress/gzip"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/util"
)

type stationMap map[string]string

func (s stationMap) CRS(_ context.Context, tiploc string) string {
	return s[tiploc]
}

var testStations = stationMap{"KNGX": "KGX", "PBRO": "PBO", "YORK": "YRK"}

type recordingPublisher struct {
	mutex  sync.Mutex
	events []ctdf.TrainEvent
}

func (p *recordingPublisher) Publish(event ctdf.TrainEvent) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.events = append(p.events, event)
	return nil
}

const pushPortFrame = `<?xml version="1.0" encoding="UTF-8"?>
<Pport xmlns="http://www.thalesgroup.com/rtti/PushPort/v16" xmlns:ns3="http://www.thalesgroup.com/rtti/PushPort/Forecasts/v3" ts="2024-06-03T10:07:00" version="16.0">
  <uR updateOrigin="TD">
    <schedule rid="202406037654321" uid="W12345" trainId="1A23" ssd="2024-06-03" toc="GR">
      <OR tpl="KNGX" act="TB" ptd="10:00" wtd="10:00"/>
      <IP tpl="PBRO" act="T " pta="10:45" ptd="10:47" wta="10:45" wtd="10:47" can="true"/>
      <DT tpl="YORK" act="TF" pta="11:52" wta="11:52"/>
    </schedule>
    <TS rid="202406037654321" uid="W12345" ssd="2024-06-03">
      <ns3:Location tpl="KNGX" wtd="10:00" ptd="10:00">
        <ns3:dep at="10:06" src="TD"/>
        <ns3:plat platsup="false" conf="true">1</ns3:plat>
      </ns3:Location>
      <ns3:Location tpl="HTCHNSJ" wtp="10:20">
        <ns3:pass et="10:24" src="Darwin"/>
      </ns3:Location>
      <ns3:Location tpl="YORK" wta="11:52" pta="11:52">
        <ns3:arr et="11:57" src="Darwin"/>
        <ns3:plat platsup="true">9</ns3:plat>
      </ns3:Location>
    </TS>
  </uR>
</Pport>`

func gzipped(t *testing.T, body string) []byte {
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	_, err := writer.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return buffer.Bytes()
}

func TestParseXMLFile(t *testing.T) {
	pushPortData, err := ParseXMLFile(strings.NewReader(pushPortFrame))
	require.NoError(t, err)

	require.Len(t, pushPortData.Schedules, 1)
	require.Len(t, pushPortData.TrainStatuses, 1)

	schedule := pushPortData.Schedules[0]
	assert.Equal(t, "1A23", schedule.TrainID)
	assert.Equal(t, "KNGX", schedule.Origin.Tiploc)
	assert.Len(t, schedule.Intermediate, 1)
	assert.Equal(t, "YORK", schedule.Destination.Tiploc)

	assert.Len(t, pushPortData.TrainStatuses[0].Locations, 3)
}

func TestPushPortEvents(t *testing.T) {
	assert := assert.New(t)

	pushPortData, err := ParseMessage(gzipped(t, pushPortFrame))
	require.NoError(t, err)

	events := pushPortData.Events(context.Background(), testStations)
	require.Len(t, events, 4)

	schedule := events[0]
	assert.Equal(ctdf.TrainEventSourceSchedule, schedule.Source)
	assert.Equal("1A23", schedule.Headcode)
	assert.Equal("202406037654321", schedule.ServiceID)
	assert.Equal("KGX", schedule.CRS)
	require.Len(t, schedule.Payload.Route, 3)
	assert.Equal("PBO", schedule.Payload.Route[1].CRS)

	cancellation := events[1]
	assert.Equal(ctdf.TrainEventSourceDarwin, cancellation.Source)
	assert.Equal("PBO", cancellation.CRS)
	assert.True(cancellation.Payload.Cancelled)
	assert.True(cancellation.ObservedTime.IsZero())

	departure := events[2]
	assert.Equal("KGX", departure.CRS)
	assert.False(departure.Payload.Estimated)
	assert.Equal("1", departure.Payload.Platform)
	scheduled, _ := util.ParseRailTime("2024-06-03", "10:00")
	observed, _ := util.ParseRailTime("2024-06-03", "10:06")
	assert.True(scheduled.Equal(departure.ScheduledTime))
	assert.True(observed.Equal(departure.ObservedTime))

	// HTCHNSJ is not a station, York is only forecast with a suppressed platform
	arrival := events[3]
	assert.Equal("YRK", arrival.CRS)
	assert.True(arrival.Payload.Estimated)
	assert.Empty(arrival.Payload.Platform)
}

func TestParseMessageInvalid(t *testing.T) {
	_, err := ParseMessage([]byte("not gzip"))
	assert.Error(t, err)
}

func TestStompClientHandleMessage(t *testing.T) {
	publisher := &recordingPublisher{}
	client := &StompClient{Publisher: publisher, Stations: testStations}

	client.HandleMessage(context.Background(), gzipped(t, pushPortFrame))
	client.HandleMessage(context.Background(), []byte("garbage"))

	assert.Len(t, publisher.events, 4)
}
