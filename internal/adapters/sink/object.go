package sink

import (
	"context"
	"fmt"

	"github.com/okian/tradeboard/internal/adapters/blob/s3blob"
	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/pkg/logger"
)

const csvContentType = "text/csv"

// objectSink uploads the CSV as one object.
type objectSink struct {
	settings
	storage s3blob.ClientConfig
	key     string
}

func (s *objectSink) Write(ctx context.Context, rows []model.RankedAccount) error {
	data, err := encodeCSV(s.accountColumn, rows)
	if err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	client, err := s3blob.New(ctx, s.storage)
	if err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	if err := s3blob.NewWriter(client).PutBytes(ctx, s.key, data, csvContentType); err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}

	s.logger.Info(ctx, "leaderboard uploaded",
		logger.String("bucket", s.storage.Bucket),
		logger.String("key", s.key),
		logger.Int("rows", len(rows)))
	return nil
}
