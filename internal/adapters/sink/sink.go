// Package sink writes the ranked leaderboard to a CSV file, an S3 object
// or a SQLite table.
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/tradeboard/internal/adapters/blob/s3blob"
	"github.com/okian/tradeboard/internal/domain/flatten"
	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/pkg/logger"
)

// ErrSinkWrite is the sentinel for failed leaderboard writes.
var ErrSinkWrite = errors.New("sink write failed")

// metricColumns follow the account column in every output.
var metricColumns = []string{ //nolint:gochecknoglobals // fixed output layout
	"PnL", "ROI", "Win_Rate", "Win_Positions", "Total_Positions",
	"Sharpe_Ratio", "MDD", "ROI_normalized", "PnL_normalized",
	"Sharpe_Ratio_normalized", "Win_Rate_normalized", "Score", "Rank",
}

// Sink persists a leaderboard. Rows arrive in ascending rank order.
type Sink interface {
	Write(ctx context.Context, rows []model.RankedAccount) error
}

type settings struct {
	accountColumn string
	storage       s3blob.ClientConfig
	logger        logger.Logger
}

// New picks the sink for location: s3:// is an object upload, a .db or
// .sqlite suffix is a SQLite table, anything else a local CSV file.
func New(location string, opts ...Option) (Sink, error) {
	cfg := settings{
		accountColumn: flatten.DefaultAccountColumn,
		storage:       s3blob.ClientConfig{Region: "us-east-1", UseSSL: true},
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if s3blob.IsLocation(location) {
		bucket, key, err := s3blob.ParseLocation(location)
		if err != nil {
			return nil, fmt.Errorf("sink: %w", err)
		}
		storage := cfg.storage
		storage.Bucket = bucket
		return &objectSink{settings: cfg, storage: storage, key: key}, nil
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite":
		return &sqliteSink{settings: cfg, path: location}, nil
	}
	return &fileSink{settings: cfg, path: location}, nil
}

// Columns returns the output header.
func Columns(accountColumn string) []string {
	return append([]string{accountColumn}, metricColumns...)
}

// Record renders one row in column order.
func Record(r model.RankedAccount) []string {
	return []string{
		r.AccountID,
		FormatFloat(r.PnL),
		FormatFloat(r.ROI),
		FormatFloat(r.WinRate),
		strconv.Itoa(r.WinPositions),
		strconv.Itoa(r.TotalPositions),
		FormatFloat(r.SharpeRatio),
		FormatFloat(r.MDD),
		FormatFloat(r.ROINormalized),
		FormatFloat(r.PnLNormalized),
		FormatFloat(r.SharpeRatioNormalized),
		FormatFloat(r.WinRateNormalized),
		FormatFloat(r.Score),
		formatRank(r.Rank),
	}
}

// FormatFloat writes the shortest round-trip digits, keeping ".0" on
// integral values and switching to an exponent outside [1e-4, 1e16). NaN
// is an empty cell.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatRank leaves unranked rows empty.
func formatRank(rank int) string {
	if rank == 0 {
		return ""
	}
	return strconv.Itoa(rank)
}

func encodeCSV(accountColumn string, rows []model.RankedAccount) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns(accountColumn)); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(Record(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
