package ctdf

import (
	"fmt"
	"time"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Body      interface{}
}

type EventType string

const (
	EventTypeTrainCreated          EventType = "TrainCreated"
	EventTypeTrainTDActivated      EventType = "TrainTDActivated"
	EventTypeTrainTDDeactivated    EventType = "TrainTDDeactivated"
	EventTypeTrainScheduleMatched  EventType = "TrainScheduleMatched"
	EventTypeTrainVariationChanged EventType = "TrainVariationChanged"
)

// TrainEventBody is the payload carried by every train status notification
type TrainEventBody struct {
	Train *Train

	OldVariationStatus VariationStatus `json:",omitempty"`
}

func (e *Event) GetNotificationData() EventNotificationData {
	eventNotificationData := EventNotificationData{}

	body, ok := e.Body.(*TrainEventBody)
	if !ok || body.Train == nil {
		return eventNotificationData
	}
	train := body.Train

	switch e.Type {
	case EventTypeTrainCreated:
		eventNotificationData.Title = "Train tracked"
		eventNotificationData.Message = fmt.Sprintf("%s on %s is now being tracked", train.Headcode, train.ServiceDate)
	case EventTypeTrainTDActivated:
		eventNotificationData.Title = "Train describer"
		eventNotificationData.Message = fmt.Sprintf("%s is being reported at berth %s", train.Headcode, train.LastBerth)
	case EventTypeTrainTDDeactivated:
		eventNotificationData.Title = "Train describer"
		eventNotificationData.Message = fmt.Sprintf("%s is no longer reported by the train describer", train.Headcode)
	case EventTypeTrainScheduleMatched:
		eventNotificationData.Title = "Schedule matched"
		eventNotificationData.Message = fmt.Sprintf("%s matched to a schedule with %d calling points", train.Headcode, len(train.Route))
	case EventTypeTrainVariationChanged:
		eventNotificationData.Title = "Running update"

		if train.LastMovement != nil {
			eventNotificationData.Message = fmt.Sprintf("%s is now %s at %s (%+d min)", train.Headcode, train.LastMovement.VariationStatus, train.LastMovement.Location, train.LastMovement.DeltaMinutes)
		}
	}

	return eventNotificationData
}

type EventNotificationData struct {
	Title   string
	Message string
}
