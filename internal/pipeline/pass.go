package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"case-metrics/internal/domain"
	"case-metrics/internal/ingestion"
	"case-metrics/internal/metrics"
	"case-metrics/internal/normalization"
	"case-metrics/internal/observability"
	"case-metrics/internal/snapshot"
	"case-metrics/internal/storage"
)

// Options configures a Pass.
type Options struct {
	InputDir         string
	OutputDir        string
	SnapshotBase     string
	PopularitySource string
}

// Result summarizes one aggregation pass.
type Result struct {
	RunID          string
	Start          time.Time
	Duration       time.Duration
	Feeds          int
	Records        int
	Skipped        map[string]int // by observability.Reason*
	Observations   int
	TimeFallbacks  int // observations stamped with Start for lack of a usable record time
	TicksInserted  int
	TicksDuplicate int
	Rows           int
	Output         *snapshot.Output
}

// Pass runs one batch aggregation: read every feed, store the observations,
// compute window figures and write the snapshot files.
type Pass struct {
	store      storage.TimeSeriesStore
	kv         storage.KVStore
	normalizer *normalization.Normalizer
	opts       Options
	logger     *zap.Logger
	metrics    *observability.Metrics
	clock      func() time.Time
	newID      func() string
}

// NewPass creates a pass over the given stores.
func NewPass(store storage.TimeSeriesStore, kv storage.KVStore, normalizer *normalization.Normalizer, opts Options) *Pass {
	if opts.SnapshotBase == "" {
		opts.SnapshotBase = snapshot.DefaultBaseName
	}
	if opts.PopularitySource == "" {
		opts.PopularitySource = snapshot.DefaultPopularitySource
	}
	return &Pass{
		store:      store,
		kv:         kv,
		normalizer: normalizer,
		opts:       opts,
		logger:     zap.NewNop(),
		clock:      func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.NewString() },
	}
}

// WithLogger sets the logger.
func (p *Pass) WithLogger(logger *zap.Logger) *Pass {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithMetrics sets the metrics sink.
func (p *Pass) WithMetrics(m *observability.Metrics) *Pass {
	p.metrics = m
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pass) WithClock(clock func() time.Time) *Pass {
	p.clock = clock
	return p
}

// WithIDFunc sets the run id generator.
func (p *Pass) WithIDFunc(newID func() string) *Pass {
	p.newID = newID
	return p
}

// Run executes the pass. Malformed input is skipped and counted; any store
// or output error aborts the pass and no snapshot is written.
func (p *Pass) Run(ctx context.Context) (*Result, error) {
	start := p.clock().UTC()
	res := &Result{
		RunID:   p.newID(),
		Start:   start,
		Skipped: make(map[string]int),
	}
	logger := p.logger.With(zap.String("run_id", res.RunID))
	logger.Info("aggregation pass started",
		zap.Time("script_start", start),
		zap.String("input_dir", p.opts.InputDir),
	)

	err := p.run(ctx, logger, res)
	res.Duration = p.clock().Sub(start)

	if err != nil {
		p.recordPass("failure", res.Duration)
		logger.Error("aggregation pass failed", zap.Error(err))
		return res, err
	}

	p.recordPass("success", res.Duration)
	if p.metrics != nil {
		p.metrics.RecordSuccess(start, res.Rows)
	}
	logger.Info("aggregation pass finished",
		zap.Int("feeds", res.Feeds),
		zap.Int("records", res.Records),
		zap.Int("observations", res.Observations),
		zap.Int("time_fallbacks", res.TimeFallbacks),
		zap.Int("ticks_inserted", res.TicksInserted),
		zap.Int("ticks_duplicate", res.TicksDuplicate),
		zap.Any("skipped", res.Skipped),
		zap.Int("rows", res.Rows),
		zap.String("snapshot", res.Output.SnapshotPath),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pass) run(ctx context.Context, logger *zap.Logger, res *Result) error {
	feeds, err := ingestion.DiscoverFeeds(p.opts.InputDir, p.opts.SnapshotBase)
	if err != nil {
		return err
	}

	windows := metrics.NewWindows(res.Start)
	builder := snapshot.NewBuilder(p.store, metrics.NewAggregator(p.store, windows), p.opts.PopularitySource)
	reader := ingestion.NewReader(logger)

	for _, feed := range feeds {
		feedLogger := logger.With(zap.String("feed", feed.Name))
		stats, err := reader.ReadFeed(ctx, feed, func(rec domain.Record) error {
			return p.ingestRecord(ctx, feedLogger, builder, feed.Name, rec, res)
		})
		if err != nil {
			return fmt.Errorf("feed %s: %w", feed.Name, err)
		}

		res.Feeds++
		res.Records += stats.Records
		p.skip(res, observability.ReasonMalformed, stats.Malformed)
		if p.metrics != nil {
			p.metrics.FeedsRead.Inc()
			p.metrics.RecordsRead.WithLabelValues(feed.Name).Add(float64(stats.Records))
		}
		feedLogger.Debug("feed read",
			zap.Int("records", stats.Records),
			zap.Int("malformed", stats.Malformed),
		)
	}

	rows := builder.Rows()
	res.Rows = len(rows)

	out, err := snapshot.NewWriter(p.opts.OutputDir, p.opts.SnapshotBase).Write(res.Start, rows)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	res.Output = out

	state := &storage.RunState{
		RunID:    res.RunID,
		Start:    res.Start,
		Snapshot: filepath.Base(out.SnapshotPath),
		Rows:     res.Rows,
	}
	if err := storage.SaveRunState(ctx, p.kv, state); err != nil {
		// The latest file already holds this pass's rows; only the
		// timestamped file is withdrawn.
		if rmErr := out.RemoveSnapshot(); rmErr != nil {
			logger.Warn("remove snapshot", zap.Error(rmErr))
		}
		res.Output = nil
		return fmt.Errorf("save run state: %w", err)
	}
	return nil
}

// ingestRecord normalizes one record and feeds its observations to the builder.
// Only store failures are returned.
func (p *Pass) ingestRecord(ctx context.Context, logger *zap.Logger, builder *snapshot.Builder, source string, rec domain.Record, res *Result) error {
	nres, err := p.normalizer.Normalize(rec, source, res.Start)
	if err != nil {
		reason := observability.ReasonNoItem
		if errors.Is(err, normalization.ErrNoTime) {
			reason = observability.ReasonNoTime
		}
		p.skip(res, reason, 1)
		logger.Debug("skip record", zap.String("reason", reason), zap.Error(err))
		return nil
	}

	for _, rej := range nres.Rejected {
		p.skip(res, observability.ReasonNotNumeric, 1)
		logger.Debug("skip metric value",
			zap.String("metric", rej.Metric),
			zap.String("field", rej.Field),
			zap.Any("value", rej.Value),
		)
	}

	for _, obs := range nres.Observations {
		if obs.TimeFallback {
			res.TimeFallbacks++
			if p.metrics != nil {
				p.metrics.TimeFallbacks.WithLabelValues(source).Inc()
			}
		}

		inserted, err := builder.Ingest(ctx, obs)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", obs.SeriesKey(), err)
		}

		res.Observations++
		if inserted {
			res.TicksInserted++
		} else {
			res.TicksDuplicate++
		}
		if p.metrics != nil {
			p.metrics.Observations.WithLabelValues(obs.Metric).Inc()
			if inserted {
				p.metrics.TicksInserted.Inc()
			} else {
				p.metrics.TicksDuplicate.Inc()
			}
		}
	}
	return nil
}

func (p *Pass) skip(res *Result, reason string, n int) {
	if n == 0 {
		return
	}
	res.Skipped[reason] += n
	if p.metrics != nil {
		p.metrics.RecordsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

func (p *Pass) recordPass(status string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.RecordPass(status, d)
	}
}
