package transform

import (
	"time"

	"github.com/arthspark/etl/extract"
	"github.com/arthspark/etl/utils"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used by FRED and by the store.
const DateLayout = "2006-01-02"

// Record is one canonical observation ready for loading. Value is a
// fixed-point decimal so repeated loads never drift from float rounding.
type Record struct {
	SeriesID    string
	Date        time.Time
	Value       decimal.Decimal
	ProcessedAt time.Time
}

type DiscardReason string

const (
	// ReasonMissingValue: the source's missing-data token. Dropped by policy,
	// so "no row" means "no data", never zero.
	ReasonMissingValue DiscardReason = "missing_value"
	ReasonBadDate      DiscardReason = "bad_date"
	ReasonBadValue     DiscardReason = "bad_value"
	ReasonDuplicate    DiscardReason = "duplicate_date"
)

// Discard reports one raw observation that was not turned into a Record,
// with the offending raw row attached.
type Discard struct {
	SeriesID string
	Raw      extract.RawObservation
	Reason   DiscardReason
	Err      error
}

// Normalize coerces raw observations into canonical records, stamping each
// surviving record with the current processing time. Rows that cannot be
// coerced are returned as Discards for the caller to log; they never abort
// the series. When the source repeats a date, the first occurrence wins.
func Normalize(seriesID string, raw []extract.RawObservation, timeProvider utils.TimeProvider) ([]Record, []Discard) {
	processedAt := timeProvider.Now()
	records := make([]Record, 0, len(raw))
	var discards []Discard
	seen := make(map[string]bool, len(raw))

	for _, obs := range raw {
		date, err := time.Parse(DateLayout, obs.Date)
		if err != nil {
			discards = append(discards, Discard{SeriesID: seriesID, Raw: obs, Reason: ReasonBadDate, Err: err})
			continue
		}

		if obs.Value == extract.MissingValue {
			discards = append(discards, Discard{SeriesID: seriesID, Raw: obs, Reason: ReasonMissingValue})
			continue
		}

		value, err := decimal.NewFromString(obs.Value)
		if err != nil {
			discards = append(discards, Discard{SeriesID: seriesID, Raw: obs, Reason: ReasonBadValue, Err: err})
			continue
		}

		if seen[obs.Date] {
			discards = append(discards, Discard{SeriesID: seriesID, Raw: obs, Reason: ReasonDuplicate})
			continue
		}
		seen[obs.Date] = true

		records = append(records, Record{
			SeriesID:    seriesID,
			Date:        date,
			Value:       value,
			ProcessedAt: processedAt,
		})
	}

	return records, discards
}
