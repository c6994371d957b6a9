package sink

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/pkg/logger"
)

// TableName is the SQLite table holding the leaderboard.
const TableName = "leaderboard"

// sqliteSink replaces the leaderboard table in one transaction.
type sqliteSink struct {
	settings
	path string
}

func (s *sqliteSink) Write(ctx context.Context, rows []model.RankedAccount) (err error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	columns := Columns(s.accountColumn)
	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+TableName); err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	if _, err = tx.ExecContext(ctx, createStatement(columns)); err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(columns))
	if err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err = stmt.ExecContext(ctx, sqlArgs(r)...); err != nil {
			return fmt.Errorf("sink: %w: insert %s: %w", ErrSinkWrite, r.AccountID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sink: %w: %w", ErrSinkWrite, err)
	}

	s.logger.Info(ctx, "leaderboard stored",
		logger.String("path", s.path),
		logger.String("table", TableName),
		logger.Int("rows", len(rows)))
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createStatement(columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		typ := "REAL"
		switch {
		case i == 0:
			typ = "TEXT"
		case c == "Win_Positions", c == "Total_Positions", c == "Rank":
			typ = "INTEGER"
		}
		defs[i] = quoteIdent(c) + " " + typ
	}
	return "CREATE TABLE " + TableName + " (" + strings.Join(defs, ", ") + ")"
}

func insertStatement(columns []string) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = quoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + TableName + " (" + strings.Join(names, ", ") + ") VALUES (" + placeholders + ")"
}

// nullable maps NaN to NULL.
func nullable(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

func sqlArgs(r model.RankedAccount) []any {
	var rank any
	if r.Rank != 0 {
		rank = r.Rank
	}
	return []any{
		r.AccountID,
		nullable(r.PnL),
		nullable(r.ROI),
		nullable(r.WinRate),
		r.WinPositions,
		r.TotalPositions,
		nullable(r.SharpeRatio),
		nullable(r.MDD),
		nullable(r.ROINormalized),
		nullable(r.PnLNormalized),
		nullable(r.SharpeRatioNormalized),
		nullable(r.WinRateNormalized),
		nullable(r.Score),
		rank,
	}
}
