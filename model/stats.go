package model

// TimeSeriesPoint is one bucket of the clicks-over-time series.
type TimeSeriesPoint struct {
	Start  int64 `json:"start"` // bucket start, Unix milliseconds
	Clicks int64 `json:"clicks"`
}

// Breakdown is one dimension value and its click count.
type Breakdown struct {
	Value  string `json:"value"`
	Clicks int64  `json:"clicks"`
}

// Stats is the aggregated result for one link, or for every link of a
// host when Key is empty.
type Stats struct {
	Key            string            `json:"key,omitempty"`
	Interval       string            `json:"interval"`
	TotalClicks    int64             `json:"totalClicks"`
	ClicksOverTime []TimeSeriesPoint `json:"clicksOverTime"`
	Devices        []Breakdown       `json:"deviceBreakdown"`
	OSes           []Breakdown       `json:"osBreakdown"`
	Browsers       []Breakdown       `json:"browserBreakdown"`
	Locations      []Breakdown       `json:"locationBreakdown"`
	Referers       []Breakdown       `json:"refererBreakdown"`
	UTMs           []Breakdown       `json:"utmBreakdown"`
}
