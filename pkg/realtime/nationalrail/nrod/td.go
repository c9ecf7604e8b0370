package nrod

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/util"
)

var headcodeRegex = regexp.MustCompile(`^[0-9][A-Z][0-9]{2}$`)

// TDMessage is one C-class train describer message. The feed wraps each in an object keyed by type.
type TDMessage struct {
	Time    string `json:"time"`
	AreaID  string `json:"area_id"`
	MsgType string `json:"msg_type"`
	From    string `json:"from"`
	To      string `json:"to"`
	Descr   string `json:"descr"`

	ReportTime string `json:"report_time"`
}

// ParseTDMessages decodes a TD feed frame into train events. Heartbeats, unknown message types and
// descriptions that are not headcodes are skipped.
func ParseTDMessages(messagesBytes []byte, areas []string) ([]ctdf.TrainEvent, error) {
	var wrappedMessages []map[string]TDMessage
	if err := json.Unmarshal(messagesBytes, &wrappedMessages); err != nil {
		return nil, err
	}

	var events []ctdf.TrainEvent

	for _, wrapped := range wrappedMessages {
		for _, message := range wrapped {
			if len(areas) > 0 && !util.ContainsString(areas, message.AreaID) {
				continue
			}

			event, ok := message.TrainEvent()
			if ok {
				events = append(events, event)
			}
		}
	}

	return events, nil
}

// TrainEvent converts the message, returning false when it carries no train movement
func (m *TDMessage) TrainEvent() (ctdf.TrainEvent, bool) {
	if !headcodeRegex.MatchString(m.Descr) {
		return ctdf.TrainEvent{}, false
	}

	milliseconds, err := strconv.ParseInt(m.Time, 10, 64)
	if err != nil {
		log.Debug().Str("area", m.AreaID).Str("time", m.Time).Msg("TD message has no usable time")
		return ctdf.TrainEvent{}, false
	}

	event := ctdf.TrainEvent{
		Source:       ctdf.TrainEventSourceTD,
		Headcode:     m.Descr,
		ObservedTime: time.UnixMilli(milliseconds).UTC(),
		Payload: ctdf.TrainEventPayload{
			Area: m.AreaID,
		},
	}

	switch m.MsgType {
	case "CA":
		event.Payload.FromBerth = m.berth(m.From)
		event.Payload.Berth = m.berth(m.To)
	case "CC":
		event.Payload.Berth = m.berth(m.To)
	case "CB":
		event.Payload.FromBerth = m.berth(m.From)
		event.Payload.FinalBerth = true
	default:
		return ctdf.TrainEvent{}, false
	}

	return event.Normalize(), true
}

func (m *TDMessage) berth(berth string) string {
	if berth == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", m.AreaID, berth)
}
