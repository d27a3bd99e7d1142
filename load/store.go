package load

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arthspark/etl/transform"
)

// SeriesMeta is one row of the series_metadata table. A zero
// ObservationStart is stored as NULL.
type SeriesMeta struct {
	SeriesID           string
	SeriesName         string
	Description        string
	Units              string
	Frequency          string
	SeasonalAdjustment string
	ObservationStart   time.Time
}

// RowCounts reports how an observation batch landed.
type RowCounts struct {
	Inserted int
	Updated  int
}

const upsertSeriesMetaSQL = `
INSERT INTO series_metadata (
    series_id, series_name, description, units, frequency,
    seasonal_adjustment, observation_start, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (series_id) DO UPDATE SET
    series_name = EXCLUDED.series_name,
    description = EXCLUDED.description,
    units = EXCLUDED.units,
    frequency = EXCLUDED.frequency,
    seasonal_adjustment = EXCLUDED.seasonal_adjustment,
    observation_start = EXCLUDED.observation_start,
    updated_at = EXCLUDED.updated_at;`

const upsertObservationSQL = `
INSERT INTO economic_time_series_data (
    series_id, date, value, processed_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (series_id, date) DO UPDATE SET
    value = EXCLUDED.value,
    processed_at = EXCLUDED.processed_at,
    updated_at = EXCLUDED.updated_at;`

// UpsertSeriesMeta inserts the series metadata row or updates its mutable
// fields; series_id is the conflict key and created_at survives updates.
func (db *DB) UpsertSeriesMeta(ctx context.Context, meta SeriesMeta) error {
	var observationStart any
	if !meta.ObservationStart.IsZero() {
		observationStart = meta.ObservationStart
	}

	now := time.Now()
	_, err := db.DB.ExecContext(ctx, upsertSeriesMetaSQL,
		meta.SeriesID,
		meta.SeriesName,
		meta.Description,
		meta.Units,
		meta.Frequency,
		meta.SeasonalAdjustment,
		observationStart,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert metadata for series %s: %w", meta.SeriesID, err)
	}
	return nil
}

// LatestObservationDate returns the watermark for a series: the maximum
// stored observation date. ok is false when the series has no rows yet.
func (db *DB) LatestObservationDate(ctx context.Context, seriesID string) (latest time.Time, ok bool, err error) {
	var max sql.NullTime
	row := db.DB.QueryRowContext(ctx,
		`SELECT MAX(date) FROM economic_time_series_data WHERE series_id = $1`, seriesID)
	if err := row.Scan(&max); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest date for series %s: %w", seriesID, err)
	}
	if !max.Valid {
		return time.Time{}, false, nil
	}
	return max.Time, true, nil
}

// UpsertObservations writes one batch of records in a single transaction:
// either every record is durably applied or none is. Existing (series, date)
// rows get their value and timestamps replaced in place.
func (db *DB) UpsertObservations(ctx context.Context, seriesID string, records []transform.Record) (RowCounts, error) {
	var counts RowCounts
	if len(records) == 0 {
		return counts, nil
	}

	existing, err := db.storedDates(ctx, seriesID)
	if err != nil {
		return counts, err
	}

	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction for series %s: %w", seriesID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertObservationSQL)
	if err != nil {
		return counts, fmt.Errorf("failed to prepare upsert for series %s: %w", seriesID, err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, record := range records {
		dateStr := record.Date.Format(transform.DateLayout)
		_, err := stmt.ExecContext(ctx,
			record.SeriesID,
			record.Date,
			record.Value.String(),
			record.ProcessedAt,
			now,
			now,
		)
		if err != nil {
			return RowCounts{}, fmt.Errorf("failed to upsert observation (%s, %s): %w", seriesID, dateStr, err)
		}
		if existing[dateStr] {
			counts.Updated++
		} else {
			counts.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return RowCounts{}, fmt.Errorf("failed to commit observations for series %s: %w", seriesID, err)
	}

	return counts, nil
}

// storedDates returns the set of dates already present for a series, so the
// upsert can report inserted vs updated rows without dialect-specific tricks.
func (db *DB) storedDates(ctx context.Context, seriesID string) (map[string]bool, error) {
	rows, err := db.DB.QueryContext(ctx,
		`SELECT date FROM economic_time_series_data WHERE series_id = $1`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stored dates for series %s: %w", seriesID, err)
	}
	defer rows.Close()

	dates := make(map[string]bool)
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan stored date for series %s: %w", seriesID, err)
		}
		dates[date.Format(transform.DateLayout)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stored dates for series %s: %w", seriesID, err)
	}

	return dates, nil
}
