package util

import (
	"time"
)

const ServiceDateFormat = "2006-01-02"

var londonLocation *time.Location

func init() {
	var err error
	londonLocation, err = time.LoadLocation("Europe/London")
	if err != nil {
		londonLocation = time.UTC
	}
}

func LondonLocation() *time.Location {
	return londonLocation
}

func AddTimeToDate(date time.Time, sourceTime time.Time) time.Time {
	newDateTime := time.Date(date.Year(), date.Month(), date.Day(), sourceTime.Hour(), sourceTime.Minute(), sourceTime.Second(), sourceTime.Nanosecond(), date.Location())

	return newDateTime
}

// ServiceDate returns the operating day a timestamp falls in, using the local calendar of the rail network
func ServiceDate(t time.Time) string {
	return t.In(londonLocation).Format(ServiceDateFormat)
}

// ParseServiceDate parses a YYYY-MM-DD date as midnight local time
func ParseServiceDate(date string) (time.Time, error) {
	return time.ParseInLocation(ServiceDateFormat, date, londonLocation)
}

// ParseRailTime combines a service date with a HH:MM, HH:MM:SS, HHMM or HHMMSS time of day.
// A trailing H, as used by the schedule feeds, adds 30 seconds.
func ParseRailTime(serviceDate string, timeOfDay string) (time.Time, error) {
	date, err := ParseServiceDate(serviceDate)
	if err != nil {
		return time.Time{}, err
	}

	halfMinute := false
	if len(timeOfDay) > 0 && (timeOfDay[len(timeOfDay)-1] == 'H' || timeOfDay[len(timeOfDay)-1] == 'h') {
		halfMinute = true
		timeOfDay = timeOfDay[:len(timeOfDay)-1]
	}

	var parsed time.Time
	switch len(timeOfDay) {
	case 4:
		parsed, err = time.Parse("1504", timeOfDay)
	case 5:
		parsed, err = time.Parse("15:04", timeOfDay)
	case 6:
		parsed, err = time.Parse("150405", timeOfDay)
	default:
		parsed, err = time.Parse("15:04:05", timeOfDay)
	}
	if err != nil {
		return time.Time{}, err
	}

	result := AddTimeToDate(date, parsed)
	if halfMinute {
		result = result.Add(30 * time.Second)
	}

	return result, nil
}

// RollOver moves a time of day that has wrapped past midnight onto the following day. Times more than six
// hours before the reference are taken to belong to the next day.
func RollOver(t time.Time, reference time.Time) time.Time {
	if t.IsZero() || reference.IsZero() {
		return t
	}

	if t.Before(reference.Add(-6 * time.Hour)) {
		return t.AddDate(0, 0, 1)
	}

	return t
}
