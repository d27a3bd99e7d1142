package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/arthspark/etl/config"
	"github.com/arthspark/etl/extract"
	"github.com/arthspark/etl/load"
	"github.com/arthspark/etl/transform"
	"github.com/arthspark/etl/utils"
)

type Pipeline struct {
	DB           *load.DB
	FredClient   *extract.FredClient
	Logger       *slog.Logger
	timeProvider utils.TimeProvider
}

func NewPipeline(config *config.Config, logger *slog.Logger, timeProvider utils.TimeProvider) (*Pipeline, error) {
	db, err := load.NewDB(config, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating DB database: %v", err)
	}

	httpClient, err := extract.NewFredClient(config, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating FRED HTTP client: %v", err)
	}

	return &Pipeline{
		DB:           db,
		FredClient:   httpClient,
		Logger:       logger,
		timeProvider: timeProvider,
	}, nil
}

func (p *Pipeline) Close() {
	p.DB.Close()
}

// Run executes the incremental load for every series in the registry, in
// registry order, one series at a time. A series failure never aborts the
// run; it is recorded on the summary and the loop moves on.
func (p *Pipeline) Run(ctx context.Context, series []config.SeriesConfig) *Summary {
	summary := &Summary{}
	for _, sc := range series {
		result := p.runSeries(ctx, sc, false)
		p.logResult(result)
		summary.Results = append(summary.Results, result)
	}
	return summary
}

// Backfill re-pulls the full history for the named series, ignoring the
// stored watermark. Safe over existing rows because the load is an upsert.
// IDs not present in the registry are reported as failed results.
func (p *Pipeline) Backfill(ctx context.Context, series []config.SeriesConfig, ids []string) *Summary {
	summary := &Summary{}
	for _, id := range ids {
		idx := slices.IndexFunc(series, func(sc config.SeriesConfig) bool { return sc.ID == id })
		if idx < 0 {
			result := SeriesResult{
				SeriesID: id,
				State:    StateFailed,
				Err:      fmt.Errorf("series %s is not in the registry", id),
			}
			p.logResult(result)
			summary.Results = append(summary.Results, result)
			continue
		}
		result := p.runSeries(ctx, series[idx], true)
		p.logResult(result)
		summary.Results = append(summary.Results, result)
	}
	return summary
}

// SyncMetadata upserts the registry metadata for every series without
// touching observations. Returns the number of series synced.
func (p *Pipeline) SyncMetadata(ctx context.Context, series []config.SeriesConfig) (int, error) {
	var errorList []error
	synced := 0
	for _, sc := range series {
		if err := p.DB.UpsertSeriesMeta(ctx, p.metaFromConfig(sc)); err != nil {
			errorList = append(errorList, err)
			continue
		}
		synced++
	}
	return synced, errors.Join(errorList...)
}

// runSeries walks one series through the per-run state machine:
// PENDING -> METADATA_SYNCED -> FETCHING -> TRANSFORMING -> LOADING -> DONE|FAILED.
// There are no retries within a run; the idempotent upsert makes the next
// scheduled run the retry.
func (p *Pipeline) runSeries(ctx context.Context, sc config.SeriesConfig, ignoreWatermark bool) SeriesResult {
	result := SeriesResult{SeriesID: sc.ID, State: StatePending}

	fail := func(err error) SeriesResult {
		result.State = StateFailed
		result.Err = err
		return result
	}

	if err := p.DB.UpsertSeriesMeta(ctx, p.metaFromConfig(sc)); err != nil {
		return fail(fmt.Errorf("syncing metadata: %w", err))
	}
	result.State = StateMetadataSynced

	startDate := sc.ObservationStart
	if !ignoreWatermark {
		watermark, ok, err := p.DB.LatestObservationDate(ctx, sc.ID)
		if err != nil {
			return fail(fmt.Errorf("querying watermark: %w", err))
		}
		if ok {
			// Fetch from the watermark date itself, not the day after: the
			// source revises published values, and re-upserting the overlap
			// date is what keeps the stored value current.
			startDate = watermark.Format(transform.DateLayout)
		}
	}

	result.State = StateFetching
	raw, err := p.FredClient.GetObservations(sc.ID, startDate)
	if err != nil {
		return fail(fmt.Errorf("fetching observations: %w", err))
	}
	result.Fetched = len(raw)

	result.State = StateTransforming
	records, discards := transform.Normalize(sc.ID, raw, p.timeProvider)
	result.Discarded = len(discards)
	for _, discard := range discards {
		attrs := []any{"series_id", discard.SeriesID, "date", discard.Raw.Date, "reason", string(discard.Reason)}
		if discard.Err != nil {
			attrs = append(attrs, "error", discard.Err.Error())
		}
		p.Logger.Warn("Discarded observation", attrs...)
	}

	result.State = StateLoading
	counts, err := p.DB.UpsertObservations(ctx, sc.ID, records)
	if err != nil {
		return fail(fmt.Errorf("loading observations: %w", err))
	}
	result.Inserted = counts.Inserted
	result.Updated = counts.Updated

	p.refreshObservationStart(ctx, sc)

	result.State = StateDone
	return result
}

// refreshObservationStart asks the source for the series info and, when the
// upstream earliest-available date differs from the configured one, upserts
// the metadata with the authoritative value. Best effort: a failure here is
// logged and never fails the series.
func (p *Pipeline) refreshObservationStart(ctx context.Context, sc config.SeriesConfig) {
	info, err := p.FredClient.GetSeries(sc.ID)
	if err != nil {
		p.Logger.Warn("Could not refresh series info", "series_id", sc.ID, "error", err.Error())
		return
	}
	if info.ObservationStart == "" || info.ObservationStart == sc.ObservationStart {
		return
	}

	upstreamStart, err := time.Parse(transform.DateLayout, info.ObservationStart)
	if err != nil {
		p.Logger.Warn("Unparseable upstream observation_start",
			"series_id", sc.ID, "observation_start", info.ObservationStart)
		return
	}

	meta := p.metaFromConfig(sc)
	meta.ObservationStart = upstreamStart
	if err := p.DB.UpsertSeriesMeta(ctx, meta); err != nil {
		p.Logger.Warn("Could not update observation_start", "series_id", sc.ID, "error", err.Error())
	}
}

func (p *Pipeline) metaFromConfig(sc config.SeriesConfig) load.SeriesMeta {
	meta := load.SeriesMeta{
		SeriesID:           sc.ID,
		SeriesName:         sc.Name,
		Description:        sc.Description,
		Units:              sc.Units,
		Frequency:          sc.Frequency,
		SeasonalAdjustment: sc.SeasonalAdjustment,
	}

	if sc.ObservationStart != "" {
		start, err := time.Parse(transform.DateLayout, sc.ObservationStart)
		if err != nil {
			// Stored as NULL; the next successful run refreshes it upstream.
			p.Logger.Warn("Could not parse configured observation_start",
				"series_id", sc.ID, "observation_start", sc.ObservationStart)
		} else {
			meta.ObservationStart = start
		}
	}

	return meta
}

func (p *Pipeline) logResult(result SeriesResult) {
	if result.Err != nil {
		p.Logger.Error("Series failed",
			"series_id", result.SeriesID,
			"state", string(result.State),
			"error", result.Err.Error())
		return
	}
	p.Logger.Info("Series loaded",
		"series_id", result.SeriesID,
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"discarded", result.Discarded)
}
