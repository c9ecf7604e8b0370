package trainstatus

import "errors"

var (
	// ErrMalformedEvent marks an event that can never be correlated. It is dropped, not retried.
	ErrMalformedEvent = errors.New("malformed train event")
	// ErrArchivedTrain is returned when an event resolves onto a train that has been archived
	ErrArchivedTrain = errors.New("train is archived")
)
