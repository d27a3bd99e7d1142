package pipeline

import (
	"errors"
	"fmt"
)

// SeriesState tracks how far a series got within one run.
type SeriesState string

const (
	StatePending        SeriesState = "PENDING"
	StateMetadataSynced SeriesState = "METADATA_SYNCED"
	StateFetching       SeriesState = "FETCHING"
	StateTransforming   SeriesState = "TRANSFORMING"
	StateLoading        SeriesState = "LOADING"
	StateDone           SeriesState = "DONE"
	StateFailed         SeriesState = "FAILED"
)

// SeriesResult is the per-series outcome of a run.
type SeriesResult struct {
	SeriesID  string
	State     SeriesState
	Fetched   int
	Inserted  int
	Updated   int
	Discarded int
	Err       error
}

// Summary is the end-of-run report: one result per configured series, in
// registry order.
type Summary struct {
	Results []SeriesResult
}

func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func (s *Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

func (s *Summary) Inserted() int {
	n := 0
	for _, r := range s.Results {
		n += r.Inserted
	}
	return n
}

func (s *Summary) Updated() int {
	n := 0
	for _, r := range s.Results {
		n += r.Updated
	}
	return n
}

func (s *Summary) Discarded() int {
	n := 0
	for _, r := range s.Results {
		n += r.Discarded
	}
	return n
}

// Err joins the per-series errors, or returns nil when every series
// succeeded. Committed series stay loaded regardless.
func (s *Summary) Err() error {
	var errorList []error
	for _, r := range s.Results {
		if r.Err != nil {
			errorList = append(errorList, fmt.Errorf("series %s failed in state %s: %w", r.SeriesID, r.State, r.Err))
		}
	}
	return errors.Join(errorList...)
}
