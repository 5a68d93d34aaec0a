package domain

// DataflowQuery is everything needed to address one dataflow on the SDMX service.
type DataflowQuery struct {
	DataflowName   string
	Agency         string
	DataflowID     string
	GeographyIDs   []string
	GeographyNames []string
	IndicatorIDs   []string
}

// FetchOutcome reports how retrieval went for a single dataflow.
type FetchOutcome struct {
	Dataflow string
	// Tier is the index of the query shape that succeeded, or -1.
	Tier   int
	URL    string
	Status int
	Rows   int
	Cached bool
	Err    error
}

// OK reports whether the dataflow produced a table.
func (o FetchOutcome) OK() bool { return o.Err == nil && o.Tier >= 0 }
