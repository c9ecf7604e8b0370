package ctdf

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

var StationIDFormat = "GB:TIPLOC:%s"

// Station is rail location reference data, used to map TIPLOCs onto CRS codes
type Station struct {
	PrimaryIdentifier string `groups:"basic"`

	Tiploc string `groups:"basic"`
	Stanox string `groups:"detailed"`
	NLC    string `groups:"detailed"`
	CRS    string `groups:"basic"`

	PrimaryName string `groups:"basic"`

	ModificationDateTime time.Time `groups:"internal"`
}

type QueryStation struct {
	Tiploc string
	CRS    string
}

func (s *QueryStation) ToBson() bson.M {
	if s.Tiploc != "" {
		return bson.M{"tiploc": s.Tiploc}
	}

	if s.CRS != "" {
		return bson.M{"crs": s.CRS}
	}

	return nil
}
