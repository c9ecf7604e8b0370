package darwin

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
	"github.com/travigo/trainstatus/pkg/util"
)

type TrainStatus struct {
	RID string `xml:"rid,attr"`
	UID string `xml:"uid,attr"`
	SSD string `xml:"ssd,attr"`

	Locations []TrainStatusLocation `xml:"Location"`
}

type TrainStatusLocation struct {
	TPL string `xml:"tpl,attr"`
	WTA string `xml:"wta,attr"`
	WTD string `xml:"wtd,attr"`
	WTP string `xml:"wtp,attr"`
	PTA string `xml:"pta,attr"`
	PTD string `xml:"ptd,attr"`

	Departure *TrainStatusTiming   `xml:"dep"`
	Arrival   *TrainStatusTiming   `xml:"arr"`
	Pass      *TrainStatusTiming   `xml:"pass"`
	Platform  *TrainStatusPlatform `xml:"plat"`
}

type TrainStatusTiming struct {
	AT    string `xml:"at,attr"`
	ATMIN string `xml:"atmin,attr"`

	ET    string `xml:"et,attr"`
	ETMIN string `xml:"etmin,attr"`

	SRC     string `xml:"src,attr"`
	SRCINST string `xml:"srcInst,attr"`

	Delayed string `xml:"delayed,attr"`
}

func (t *TrainStatusTiming) actual() string {
	if t == nil {
		return ""
	}
	if t.AT != "" {
		return t.AT
	}

	return t.ATMIN
}

func (t *TrainStatusTiming) estimated() string {
	if t == nil {
		return ""
	}
	if t.ET != "" {
		return t.ET
	}

	return t.ETMIN
}

type TrainStatusPlatform struct {
	PLATSUP    string `xml:"platsup,attr"`
	CISPLATSUP string `xml:"cisPlatsup,attr"`
	CONF       string `xml:"conf,attr"`

	Name string `xml:",chardata"`
}

// scheduledTime is the public time where there is one, otherwise the working time
func (l *TrainStatusLocation) scheduledTime() string {
	return firstNonEmpty(l.PTD, l.WTD, l.PTA, l.WTA, l.WTP)
}

// observedTime prefers any actual time over forecasts
func (l *TrainStatusLocation) observedTime() (string, bool) {
	if actual := firstNonEmpty(l.Departure.actual(), l.Arrival.actual(), l.Pass.actual()); actual != "" {
		return actual, false
	}

	return firstNonEmpty(l.Departure.estimated(), l.Arrival.estimated(), l.Pass.estimated()), true
}

func (l *TrainStatusLocation) platform() string {
	if l.Platform == nil || l.Platform.PLATSUP == "true" || l.Platform.CISPLATSUP == "true" {
		return ""
	}

	return strings.TrimSpace(l.Platform.Name)
}

// Events turns every location at a known station into a Darwin event
func (t *TrainStatus) Events(ctx context.Context, stations railutils.StationLookup) []ctdf.TrainEvent {
	var events []ctdf.TrainEvent
	var previous time.Time

	for _, location := range t.Locations {
		var scheduled time.Time
		if scheduledString := location.scheduledTime(); scheduledString != "" {
			parsed, err := util.ParseRailTime(t.SSD, scheduledString)
			if err != nil {
				log.Debug().Err(err).Str("rid", t.RID).Str("time", scheduledString).Msg("Invalid Darwin scheduled time")
				continue
			}
			scheduled = util.RollOver(parsed, previous)
			previous = scheduled
		}

		crs := stations.CRS(ctx, location.TPL)
		if crs == "" {
			continue
		}

		observedString, estimated := location.observedTime()
		platform := location.platform()
		if observedString == "" && platform == "" {
			continue
		}

		var observed time.Time
		if observedString != "" {
			parsed, err := util.ParseRailTime(t.SSD, observedString)
			if err != nil {
				log.Debug().Err(err).Str("rid", t.RID).Str("time", observedString).Msg("Invalid Darwin observed time")
				continue
			}

			reference := scheduled
			if reference.IsZero() {
				reference = previous
			}
			observed = util.RollOver(parsed, reference)
		}

		event := ctdf.TrainEvent{
			Source:        ctdf.TrainEventSourceDarwin,
			ServiceID:     t.RID,
			TrainUID:      t.UID,
			CRS:           crs,
			ServiceDate:   t.SSD,
			ScheduledTime: scheduled,
			ObservedTime:  observed,
			Payload: ctdf.TrainEventPayload{
				Tiploc:    location.TPL,
				Platform:  platform,
				Estimated: estimated && !observed.IsZero(),
			},
		}

		events = append(events, event.Normalize())
	}

	return events
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
