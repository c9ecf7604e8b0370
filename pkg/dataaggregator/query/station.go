package query

import "time"

// StationBoard lists calls at a station with a scheduled time inside [From, To]
type StationBoard struct {
	CRS  string
	From time.Time
	To   time.Time
}

// StationDelays is a StationBoard reduced to the calls running late
type StationDelays struct {
	CRS  string
	From time.Time
	To   time.Time
}
