package query

type Route struct {
	PrimaryIdentifier string
}

type Routes struct{}
