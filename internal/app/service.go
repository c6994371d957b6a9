// Package service runs the leaderboard pipeline: load, flatten, compute
// metrics, rank and save.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/okian/tradeboard/internal/adapters/blob/s3blob"
	"github.com/okian/tradeboard/internal/adapters/repository"
	"github.com/okian/tradeboard/internal/adapters/sink"
	"github.com/okian/tradeboard/internal/adapters/source"
	"github.com/okian/tradeboard/internal/config"
	"github.com/okian/tradeboard/internal/domain/flatten"
	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/internal/domain/performance"
	"github.com/okian/tradeboard/internal/domain/scoring"
	"github.com/okian/tradeboard/pkg/logger"
	"github.com/okian/tradeboard/pkg/metrics"
)

// Pipeline stage names used in logs and metrics.
const (
	StageLoad    = "load"
	StageFlatten = "flatten"
	StageMetrics = "metrics"
	StageRank    = "rank"
	StageSave    = "save"
)

// Loader reads an input location.
type Loader interface {
	Open(ctx context.Context, location string) (source.Dataset, error)
}

// SinkFactory builds the sink for an output location.
type SinkFactory func(location string) (sink.Sink, error)

// Result is one computed batch.
type Result struct {
	// Ranked holds every account in ascending rank order.
	Ranked []model.RankedAccount
	// Top is the selected leaderboard, ties at the boundary included.
	Top   []model.RankedAccount
	Stats repository.Stats
}

// Service wires the pipeline stages together.
type Service struct {
	loader    Loader
	flattener *flatten.Flattener
	engine    *performance.Engine
	ranker    *scoring.Ranker
	newSink   SinkFactory
	store     repository.Store

	progress io.Writer
	logger   logger.Logger
	now      func() time.Time
}

// New constructs a Service with default components.
func New(opts ...Option) *Service {
	s := &Service{
		loader:    source.New(),
		flattener: flatten.New(),
		engine:    performance.New(),
		ranker:    scoring.NewRanker(),
		newSink:   func(location string) (sink.Sink, error) { return sink.New(location) },
		progress:  io.Discard,
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig builds every stage from cfg. opts are applied last.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Service, error) {
	policy, err := scoring.ParseZeroSpreadPolicy(cfg.ZeroSpreadPolicy)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	weights := scoring.Weights{
		ROI:         cfg.Weights.ROI,
		PnL:         cfg.Weights.PnL,
		SharpeRatio: cfg.Weights.SharpeRatio,
		WinRate:     cfg.Weights.WinRate,
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	s := New(opts...)
	log := s.logger
	storage := StorageConfig(cfg.S3)

	s.loader = source.New(
		source.WithColumns(cfg.AccountColumn, cfg.HistoryColumn),
		source.WithStorage(storage),
		source.WithLogger(log.Named(StageLoad)),
	)
	s.flattener = flatten.New(
		flatten.WithAccountColumn(cfg.AccountColumn),
		flatten.WithHistoryColumn(cfg.HistoryColumn),
	)
	s.engine = performance.New(
		performance.WithFields(cfg.PriceField, cfg.QuantityField, cfg.ProfitField),
		performance.WithWorkers(cfg.Workers),
		performance.WithLogger(log.Named(StageMetrics)),
	)
	s.ranker = scoring.NewRanker(
		scoring.WithWeights(weights),
		scoring.WithZeroSpreadPolicy(policy),
	)
	s.newSink = func(location string) (sink.Sink, error) {
		return sink.New(location,
			sink.WithAccountColumn(cfg.AccountColumn),
			sink.WithStorage(storage),
			sink.WithLogger(log.Named(StageSave)),
		)
	}
	return s, nil
}

// StorageConfig maps the s3 configuration section to a client config. The
// bucket is filled in per location.
func StorageConfig(c config.S3) s3blob.ClientConfig {
	return s3blob.ClientConfig{
		Endpoint:       c.Endpoint,
		Region:         c.Region,
		AccessKey:      c.AccessKey,
		SecretKey:      c.SecretKey,
		UseSSL:         c.UseSSL,
		ForcePathStyle: c.ForcePathStyle,
	}
}

// Compute runs every stage up to ranking and returns the batch. Nothing is
// written.
func (s *Service) Compute(ctx context.Context, input string, topN int) (Result, error) {
	var res Result
	if topN < 1 {
		return res, fmt.Errorf("service: %w: %d", scoring.ErrInvalidTopN, topN)
	}

	s.printf("Loading and cleaning data...\n")
	var ds source.Dataset
	err := s.stage(ctx, StageLoad, func() (err error) {
		ds, err = s.loader.Open(ctx, input)
		return err
	})
	if err != nil {
		return res, err
	}
	res.Stats.RowsRead = len(ds.Rows)
	metrics.AddRowsRead(len(ds.Rows))

	var flat flatten.Result
	err = s.stage(ctx, StageFlatten, func() (err error) {
		flat, err = s.flattener.Flatten(ctx, ds.Header, ds.Rows)
		return err
	})
	res.Stats.InvalidRows = flat.InvalidRows
	metrics.AddRowsInvalid(flat.InvalidRows)
	if flat.InvalidRows > 0 {
		s.logger.Warn(ctx, "removed rows with invalid trade history",
			logger.Int("rows", flat.InvalidRows))
	}
	if err != nil {
		return res, err
	}
	res.Stats.Trades = len(flat.Table.Rows)
	res.Stats.Duplicates = flat.Duplicates
	res.Stats.Dropped = flat.Dropped
	metrics.AddTradeRows(len(flat.Table.Rows))
	metrics.AddDuplicateRows(flat.Duplicates)
	metrics.AddDroppedRows(flat.Dropped)
	s.logger.Info(ctx, "trade table built",
		logger.Int("entries", flat.Entries),
		logger.Int("trades", len(flat.Table.Rows)),
		logger.Int("duplicates", flat.Duplicates),
		logger.Int("dropped", flat.Dropped),
		logger.Strings("columns", flat.Table.Columns))

	s.printf("Calculating metrics...\n")
	var (
		accounts []model.AccountMetrics
		report   performance.Report
	)
	err = s.stage(ctx, StageMetrics, func() (err error) {
		accounts, report, err = s.engine.Compute(ctx, flat.Table)
		return err
	})
	res.Stats.Accounts = report.Accounts
	res.Stats.FailedAccounts = len(report.Failed)
	metrics.AddAccountsComputed(report.Computed)
	metrics.AddAccountsFailed(len(report.Failed))
	if err != nil {
		return res, err
	}
	s.logger.Info(ctx, "account metrics computed",
		logger.Int("accounts", report.Accounts),
		logger.Int("computed", report.Computed),
		logger.Int("failed", len(report.Failed)))

	s.printf("Ranking accounts...\n")
	err = s.stage(ctx, StageRank, func() (err error) {
		res.Ranked = s.ranker.RankAll(accounts)
		res.Top, err = scoring.Select(res.Ranked, topN)
		return err
	})
	if err != nil {
		return res, err
	}
	for _, r := range res.Ranked {
		if r.Rank > 0 {
			res.Stats.Ranked++
		}
	}
	res.Stats.Selected = len(res.Top)
	res.Stats.GeneratedAt = s.now()
	metrics.UpdateAccountsRanked(res.Stats.Ranked)
	metrics.UpdateLeaderboardSize(res.Stats.Selected)
	s.logger.Info(ctx, "accounts ranked",
		logger.Int("ranked", res.Stats.Ranked),
		logger.Int("selected", res.Stats.Selected))

	return res, nil
}

// Run computes the batch and writes the selected leaderboard to output.
// The output is untouched when any stage fails.
func (s *Service) Run(ctx context.Context, input, output string, topN int) (Result, error) {
	res, err := s.Compute(ctx, input, topN)
	if err != nil {
		return res, err
	}

	s.printf("Saving results to %s...\n", output)
	err = s.stage(ctx, StageSave, func() error {
		out, err := s.newSink(output)
		if err != nil {
			return err
		}
		return out.Write(ctx, res.Top)
	})
	if err != nil {
		return res, err
	}

	s.printf("Analysis complete.\n")
	return res, nil
}

// Publish computes the batch and loads it into the configured store.
func (s *Service) Publish(ctx context.Context, input string, topN int) (Result, error) {
	if s.store == nil {
		return Result{}, errors.New("service: no store configured")
	}
	res, err := s.Compute(ctx, input, topN)
	if err != nil {
		return res, err
	}
	if err := s.store.Load(ctx, repository.Snapshot{Ranked: res.Ranked, Stats: res.Stats}); err != nil {
		return res, fmt.Errorf("service: load store: %w", err)
	}
	s.logger.Info(ctx, "leaderboard published", logger.Int("accounts", len(res.Ranked)))
	return res, nil
}

// stage runs fn between cancellation checks and records its duration and
// outcome.
func (s *Service) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.logger.Debug(ctx, "stage started", logger.String("stage", name))

	err := fn()
	metrics.RecordStageDuration(name, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStageRun(name, "error")
		metrics.RecordErrorByComponent(name, errorKind(err))
		s.logger.Error(ctx, "stage failed", logger.String("stage", name), logger.Error(err))
		return err
	}
	metrics.RecordStageRun(name, "ok")
	s.logger.Debug(ctx, "stage finished",
		logger.String("stage", name),
		logger.Int64("durationMs", time.Since(start).Milliseconds()))
	return nil
}

func (s *Service) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.progress, format, args...)
}

// errorKind buckets an error for the errors_total metric.
func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, model.ErrSourceRead):
		return "source_read"
	case errors.Is(err, model.ErrSchema):
		return "schema"
	case errors.Is(err, model.ErrEmptyDataset):
		return "empty_dataset"
	case errors.Is(err, model.ErrNoMetricsComputed):
		return "no_metrics"
	case errors.Is(err, sink.ErrSinkWrite):
		return "sink_write"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
