// Package source reads the account trade-history CSV from a local file or
// from S3-compatible object storage.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/okian/tradeboard/internal/adapters/blob/s3blob"
	"github.com/okian/tradeboard/internal/domain/flatten"
	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/pkg/logger"
)

const utf8BOM = "\ufeff"

// naTokens are the cell texts read as missing values.
var naTokens = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup table
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// Dataset is the parsed input: the header and one row per record.
type Dataset struct {
	Header []string
	Rows   []model.RawAccountRow
}

// Source opens input locations.
type Source struct {
	accountColumn string
	historyColumn string
	storage       s3blob.ClientConfig
	logger        logger.Logger
}

// New creates a Source.
func New(opts ...Option) *Source {
	s := &Source{
		accountColumn: flatten.DefaultAccountColumn,
		historyColumn: flatten.DefaultHistoryColumn,
		storage:       s3blob.ClientConfig{Region: "us-east-1", UseSSL: true},
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open reads the dataset at location with default settings.
func Open(ctx context.Context, location string) (Dataset, error) {
	return New().Open(ctx, location)
}

// Open reads the dataset at location. An s3:// location is fetched from
// object storage; anything else is a local path.
func (s *Source) Open(ctx context.Context, location string) (Dataset, error) {
	body, err := s.open(ctx, location)
	if err != nil {
		return Dataset{}, err
	}
	defer func() { _ = body.Close() }()

	ds, err := s.Read(body)
	if err != nil {
		return Dataset{}, fmt.Errorf("source: %s: %w", location, err)
	}
	s.logger.Info(ctx, "source loaded",
		logger.String("location", location),
		logger.Int("rows", len(ds.Rows)),
		logger.Int("columns", len(ds.Header)))
	return ds, nil
}

func (s *Source) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !s3blob.IsLocation(location) {
		f, err := os.Open(location)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("source: %w: %w", model.ErrSourceNotFound, err)
			}
			return nil, fmt.Errorf("source: %w: %w", model.ErrSourceRead, err)
		}
		return f, nil
	}

	bucket, key, err := s3blob.ParseLocation(location)
	if err != nil {
		return nil, fmt.Errorf("source: %w: %w", model.ErrSourceRead, err)
	}
	cfg := s.storage
	cfg.Bucket = bucket
	client, err := s3blob.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("source: %w: %w", model.ErrSourceRead, err)
	}
	body, err := s3blob.NewReader(client).Get(ctx, key)
	if err != nil {
		if errors.Is(err, s3blob.ErrNotFound) {
			return nil, fmt.Errorf("source: %w: %w", model.ErrSourceNotFound, err)
		}
		return nil, fmt.Errorf("source: %w: %w", model.ErrSourceRead, err)
	}
	return body, nil
}

// Read parses CSV with a header row from r. Every record must have as
// many fields as the header.
func (s *Source) Read(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, fmt.Errorf("%w: no header row", model.ErrSourceRead)
		}
		return Dataset{}, fmt.Errorf("%w: %w", model.ErrSourceRead, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	header = append([]string(nil), header...)

	ds := Dataset{Header: header}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: %w", model.ErrSourceRead, err)
		}
		ds.Rows = append(ds.Rows, s.row(header, record))
	}
	return ds, nil
}

func (s *Source) row(header, record []string) model.RawAccountRow {
	row := model.RawAccountRow{AccountNA: true, History: model.NARaw()}
	for i, name := range header {
		raw := cell(record[i])
		switch name {
		case s.accountColumn:
			row.AccountNA = raw.NA
			row.AccountID = raw.Text
		case s.historyColumn:
			row.History = raw
		default:
			row.Extra = append(row.Extra, model.Field{Name: name, Raw: raw})
		}
	}
	return row
}

func cell(text string) model.Raw {
	if IsNA(text) {
		return model.NARaw()
	}
	return model.TextRaw(text)
}

// IsNA reports whether a cell text reads as a missing value.
func IsNA(text string) bool {
	_, ok := naTokens[text]
	return ok
}
