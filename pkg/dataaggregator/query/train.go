package query

import "github.com/travigo/trainstatus/pkg/ctdf"

// Train is a single train by primary identifier
type Train struct {
	PrimaryIdentifier string
}

// TrainByService finds the train carrying a Darwin service ID
type TrainByService struct {
	ServiceID string
}

// TrainByHeadcode finds the train running a headcode on a service date
type TrainByHeadcode struct {
	Headcode    string
	ServiceDate string
}

// Trains lists trains matching a filter, projected to Fields when any are given
type Trains struct {
	Filter ctdf.TrainFilter
	Fields []string
}

// ActiveTrainStatus lists trains with every tracking flag set, reduced to headcode and variation status
type ActiveTrainStatus struct{}
