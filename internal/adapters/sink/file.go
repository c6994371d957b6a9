package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/pkg/logger"
)

// fileSink writes CSV to a temp file next to path and renames it into
// place, so a failed write leaves any previous file intact.
type fileSink struct {
	settings
	path string
}

func (s *fileSink) Write(ctx context.Context, rows []model.RankedAccount) error {
	data, err := encodeCSV(s.accountColumn, rows)
	if err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}

	s.logger.Info(ctx, "leaderboard written",
		logger.String("path", s.path),
		logger.Int("rows", len(rows)))
	return nil
}
