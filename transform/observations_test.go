package transform

import (
	"testing"
	"time"

	"github.com/arthspark/etl/extract"
	"github.com/arthspark/etl/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	raw := []extract.RawObservation{
		{Date: "2024-01-01", Value: "27000.5"},
		{Date: "2024-02-01", Value: "27100.25"},
	}

	records, discards := Normalize("GDP", raw, utils.FixedTimeProvider{Fixed: testTime})
	assert.Empty(t, discards)
	assert.Equal(t, []Record{
		{
			SeriesID:    "GDP",
			Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Value:       decimal.RequireFromString("27000.5"),
			ProcessedAt: testTime,
		},
		{
			SeriesID:    "GDP",
			Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Value:       decimal.RequireFromString("27100.25"),
			ProcessedAt: testTime,
		},
	}, records)
}

func TestNormalize_MissingValueSentinel(t *testing.T) {
	raw := []extract.RawObservation{
		{Date: "2024-01-01", Value: "3.5"},
		{Date: "2024-01-02", Value: "."},
	}

	records, discards := Normalize("DCOILWTICO", raw, utils.FixedTimeProvider{Fixed: testTime})
	// The sentinel row is absent, not stored as null or zero.
	assert.Len(t, records, 1)
	assert.Equal(t, "2024-01-01", records[0].Date.Format(DateLayout))

	assert.Len(t, discards, 1)
	assert.Equal(t, ReasonMissingValue, discards[0].Reason)
	assert.Equal(t, "2024-01-02", discards[0].Raw.Date)
	assert.NoError(t, discards[0].Err)
}

func TestNormalize_InvalidRows(t *testing.T) {
	raw := []extract.RawObservation{
		{Date: "not-a-date", Value: "1.0"},
		{Date: "2024-01-01", Value: "not-a-number"},
		{Date: "2024-02-01", Value: "2.0"},
	}

	records, discards := Normalize("UNRATE", raw, utils.FixedTimeProvider{Fixed: testTime})
	// Bad rows are skipped, the rest of the series survives.
	assert.Len(t, records, 1)
	assert.Equal(t, "2024-02-01", records[0].Date.Format(DateLayout))

	assert.Len(t, discards, 2)
	assert.Equal(t, ReasonBadDate, discards[0].Reason)
	assert.Error(t, discards[0].Err)
	assert.Equal(t, ReasonBadValue, discards[1].Reason)
	assert.Equal(t, extract.RawObservation{Date: "2024-01-01", Value: "not-a-number"}, discards[1].Raw)
}

func TestNormalize_DuplicateDates(t *testing.T) {
	raw := []extract.RawObservation{
		{Date: "2024-01-01", Value: "1.0"},
		{Date: "2024-01-01", Value: "2.0"},
	}

	records, discards := Normalize("GDP", raw, utils.FixedTimeProvider{Fixed: testTime})
	assert.Len(t, records, 1)
	assert.True(t, records[0].Value.Equal(decimal.RequireFromString("1.0")))

	assert.Len(t, discards, 1)
	assert.Equal(t, ReasonDuplicate, discards[0].Reason)
}

func TestNormalize_Empty(t *testing.T) {
	records, discards := Normalize("GDP", nil, utils.FixedTimeProvider{Fixed: testTime})
	assert.Empty(t, records)
	assert.Empty(t, discards)
}
