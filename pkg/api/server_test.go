package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/dataaggregator"
	"github.com/travigo/trainstatus/pkg/dataaggregator/source/databaselookup"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

var apiTime = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

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

type testServer struct {
	app       *fiber.App
	trains    *trainstore.MemoryRepository
	routes    *trainstore.MemoryRouteRepository
	publisher *recordingPublisher
}

func newTestServer(t *testing.T, timeout time.Duration) *testServer {
	server := &testServer{
		trains:    trainstore.NewMemoryRepository(),
		routes:    trainstore.NewMemoryRouteRepository(),
		publisher: &recordingPublisher{},
	}

	dataaggregator.GlobalAggregator = dataaggregator.Aggregator{}
	dataaggregator.GlobalAggregator.RegisterSource(databaselookup.Source{
		Repository:      server.trains,
		RouteRepository: server.routes,
		OnTimeTolerance: time.Minute,
	})

	server.app = NewApp(Options{
		RequestTimeout:  timeout,
		RouteRepository: server.routes,
		Publisher:       server.publisher,
	})

	_, err := server.trains.Upsert(context.Background(), &ctdf.Train{
		PrimaryIdentifier: "GB:TRAIN:A",
		Headcode:          "1A23",
		ServiceID:         "202406037100001",
		ServiceDate:       "2024-06-03",
		TDActive:          true,
		ScheduleActive:    true,
		MovementActive:    true,
		LastMovement: &ctdf.TrainMovement{
			CRS:             "KGX",
			Timestamp:       apiTime.Add(6 * time.Minute),
			VariationStatus: ctdf.VariationStatusLate,
			DeltaMinutes:    6,
		},
		Route: []*ctdf.TrainWaypoint{
			{CRS: "KGX", ScheduledTime: apiTime, ActualTime: apiTime.Add(6 * time.Minute)},
			{CRS: "YRK", ScheduledTime: apiTime.Add(2 * time.Hour)},
		},
	})
	require.NoError(t, err)

	_, err = server.trains.Upsert(context.Background(), &ctdf.Train{
		PrimaryIdentifier: "GB:TRAIN:B",
		Headcode:          "2B45",
		ServiceDate:       "2024-06-03",
		TDActive:          true,
		Route: []*ctdf.TrainWaypoint{
			{CRS: "KGX", ScheduledTime: apiTime.Add(30 * time.Minute)},
		},
	})
	require.NoError(t, err)

	return server
}

func (s *testServer) do(t *testing.T, method string, target string, body interface{}) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, target, reader)
	if body != nil {
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	response, err := s.app.Test(request, 2000)
	require.NoError(t, err)

	responseBody, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response, responseBody
}

func TestVersionAndHeaders(t *testing.T) {
	server := newTestServer(t, time.Second)

	response, body := server.do(t, http.MethodGet, "/core/version", nil)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(body), "version")
	assert.Equal(t, "no-store, no-cache, must-revalidate, private", response.Header.Get(fiber.HeaderCacheControl))
}

func TestGetTrain(t *testing.T) {
	server := newTestServer(t, time.Second)

	response, body := server.do(t, http.MethodGet, "/core/trains/GB:TRAIN:A", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)

	var train map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &train))
	assert.Equal(t, "1A23", train["Headcode"])
	assert.Len(t, train["Route"], 2)

	response, _ = server.do(t, http.MethodGet, "/core/trains/GB:TRAIN:MISSING", nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	response, body = server.do(t, http.MethodGet, "/core/trains/service/202406037100001", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(body), "GB:TRAIN:A")

	response, body = server.do(t, http.MethodGet, "/core/trains/search?headcode=2b45&date=2024-06-03", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(body), "GB:TRAIN:B")

	response, _ = server.do(t, http.MethodGet, "/core/trains/search?headcode=2B45&date=03-06-2024", nil)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestListTrains(t *testing.T) {
	server := newTestServer(t, time.Second)

	response, body := server.do(t, http.MethodGet, "/core/trains?td_active=true&movement_active=true&fields=headcode,lastmovement.variationstatus", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)

	var trains []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &trains))
	require.Len(t, trains, 1)
	assert.Equal(t, "GB:TRAIN:A", trains[0]["primaryidentifier"])
	assert.Equal(t, "1A23", trains[0]["headcode"])
	assert.Equal(t, "LATE", trains[0]["lastmovement"].(map[string]interface{})["variationstatus"])
	assert.NotContains(t, trains[0], "route")

	response, body = server.do(t, http.MethodGet, "/core/trains?td_active=true", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.NoError(t, json.Unmarshal(body, &trains))
	assert.Len(t, trains, 2)

	response, body = server.do(t, http.MethodGet, "/core/trains?schedule_active=false", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.NoError(t, json.Unmarshal(body, &trains))
	require.Len(t, trains, 1)
	assert.Equal(t, "GB:TRAIN:B", trains[0]["PrimaryIdentifier"])

	response, body = server.do(t, http.MethodGet, "/core/trains/status", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(body), "LATE")
	assert.NotContains(t, string(body), "2B45")
}

func TestStationBoard(t *testing.T) {
	server := newTestServer(t, time.Second)

	response, body := server.do(t, http.MethodGet, "/core/stations/kgx/board?from=2024-06-03T09:30:00Z&duration=PT2H", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)

	var board []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &board))
	require.Len(t, board, 2)
	assert.Equal(t, "LATE", board[0]["VariationStatus"])
	assert.Equal(t, float64(6), board[0]["DelayMinutes"])
	assert.Equal(t, "UNKNOWN", board[1]["VariationStatus"])

	response, body = server.do(t, http.MethodGet, "/core/stations/KGX/delays?from=2024-06-03T09:30:00Z", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.NoError(t, json.Unmarshal(body, &board))
	require.Len(t, board, 1)

	response, body = server.do(t, http.MethodGet, "/core/stations/EDB/board?from=2024-06-03T09:30:00Z", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	response, _ = server.do(t, http.MethodGet, "/core/stations/KGX/board?duration=two-hours", nil)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestRouteDefinitions(t *testing.T) {
	server := newTestServer(t, time.Second)

	definition := map[string]interface{}{
		"Name":        "Charter",
		"Headcode":    "1z99",
		"ServiceDate": "2024-06-03",
		"Waypoints": []map[string]interface{}{
			{"CRS": "kgx", "ScheduledTime": apiTime.Format(time.RFC3339)},
			{"CRS": "yrk", "ScheduledTime": apiTime.Add(2 * time.Hour).Format(time.RFC3339)},
		},
	}

	response, body := server.do(t, http.MethodPost, "/core/routes", definition)
	require.Equal(t, http.StatusCreated, response.StatusCode, string(body))

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &created))
	identifier := created["PrimaryIdentifier"].(string)
	assert.NotEmpty(t, identifier)
	assert.Equal(t, "1Z99", created["Headcode"])

	require.Len(t, server.publisher.events, 1)
	event := server.publisher.events[0]
	assert.Equal(t, ctdf.TrainEventSourceSchedule, event.Source)
	assert.True(t, event.Payload.UserAuthored)
	assert.Len(t, event.Payload.Route, 2)
	assert.Equal(t, "KGX", event.CRS)

	response, body = server.do(t, http.MethodGet, "/core/routes/"+identifier, nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(body), "Charter")

	definition["Name"] = "Charter (amended)"
	delete(definition, "Headcode")
	response, _ = server.do(t, http.MethodPut, "/core/routes/"+identifier, definition)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Len(t, server.publisher.events, 1)

	response, body = server.do(t, http.MethodGet, "/core/routes", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(body), "Charter (amended)")

	response, _ = server.do(t, http.MethodPut, "/core/routes/GB:ROUTE:MISSING", definition)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	response, _ = server.do(t, http.MethodDelete, "/core/routes/"+identifier, nil)
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	response, _ = server.do(t, http.MethodGet, "/core/routes/"+identifier, nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestRouteDefinitionValidation(t *testing.T) {
	server := newTestServer(t, time.Second)

	response, _ := server.do(t, http.MethodPost, "/core/routes", map[string]interface{}{
		"Name": "Too short",
		"Waypoints": []map[string]interface{}{
			{"CRS": "KGX"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	response, _ = server.do(t, http.MethodPost, "/core/routes", map[string]interface{}{
		"Waypoints": []map[string]interface{}{
			{"CRS": "KGX"},
			{"CRS": "YRK"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	request := httptest.NewRequest(http.MethodPost, "/core/routes", bytes.NewReader([]byte("{not json")))
	request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	rawResponse, err := server.app.Test(request, 2000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rawResponse.StatusCode)

	assert.Empty(t, server.publisher.events)
}

func TestRequestTimeout(t *testing.T) {
	server := newTestServer(t, 20*time.Millisecond)
	server.app.Get("/core/slow", func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		return c.UserContext().Err()
	})

	response, body := server.do(t, http.MethodGet, "/core/slow", nil)
	assert.Equal(t, http.StatusServiceUnavailable, response.StatusCode)
	assert.Equal(t, ServiceUnavailableMessage, string(body))
}
