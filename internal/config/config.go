// Package config defines the pipeline and server configuration and its
// layered loading.
package config

import (
	"context"
)

// Default values.
const (
	DefaultInput               = "trade_data.csv"
	DefaultOutput              = "top_20_accounts.csv"
	DefaultTopN                = 20
	DefaultAddr                = ":9080"
	DefaultMaxLeaderboardLimit = 100
)

// Weights are the score weights of the normalized metrics.
type Weights struct {
	ROI         float64 `koanf:"roi" validate:"gte=0,finite"`
	PnL         float64 `koanf:"pnl" validate:"gte=0,finite"`
	SharpeRatio float64 `koanf:"sharpe_ratio" validate:"gte=0,finite"`
	WinRate     float64 `koanf:"win_rate" validate:"gte=0,finite"`
}

// S3 configures object storage access for s3:// locations.
type S3 struct {
	Endpoint       string `koanf:"endpoint"`
	Region         string `koanf:"region"`
	AccessKey      string `koanf:"access_key"`
	SecretKey      string `koanf:"secret_key"`
	UseSSL         bool   `koanf:"use_ssl"`
	ForcePathStyle bool   `koanf:"force_path_style"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// Input and Output are local paths, s3:// URLs, or for Output a
	// .db/.sqlite file.
	Input  string `koanf:"input" validate:"required"`
	Output string `koanf:"output" validate:"required"`

	// TopN is the number of leaderboard rows to keep, ties included.
	TopN int `koanf:"top_n" validate:"gte=1"`

	// Workers bounds concurrent per-account metric computation. 0 or 1
	// computes sequentially.
	Workers int `koanf:"workers" validate:"gte=0"`

	AccountColumn string `koanf:"account_column" validate:"required"`
	HistoryColumn string `koanf:"history_column" validate:"required"`
	PriceField    string `koanf:"price_field" validate:"required"`
	QuantityField string `koanf:"quantity_field" validate:"required"`
	ProfitField   string `koanf:"profit_field" validate:"required"`

	// ZeroSpreadPolicy is "zero" or "nan".
	ZeroSpreadPolicy string  `koanf:"zero_spread_policy" validate:"oneof=zero nan"`
	Weights          Weights `koanf:"weights"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gte=1"`

	// MetricsFile, when set, receives a Prometheus text dump after a run.
	MetricsFile string `koanf:"metrics_file"`

	S3 S3 `koanf:"s3"`
}

// New creates a Config with defaults. Context is accepted first to match
// the loader signature.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Input:            DefaultInput,
		Output:           DefaultOutput,
		TopN:             DefaultTopN,
		Workers:          1,
		AccountColumn:    "Port_IDs",
		HistoryColumn:    "Trade_History",
		PriceField:       "price",
		QuantityField:    "quantity",
		ProfitField:      "realizedProfit",
		ZeroSpreadPolicy: "zero",
		Weights: Weights{
			ROI:         0.4,
			PnL:         0.3,
			SharpeRatio: 0.2,
			WinRate:     0.1,
		},
		Addr:                DefaultAddr,
		MaxLeaderboardLimit: DefaultMaxLeaderboardLimit,
		S3: S3{
			Region: "us-east-1",
			UseSSL: true,
		},
	}
}
