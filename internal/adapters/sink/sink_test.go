package sink

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/tradeboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func leaderboard() []model.RankedAccount {
	return []model.RankedAccount{
		{
			AccountMetrics: model.AccountMetrics{
				AccountID: "A", PnL: 3, ROI: 0.2, WinRate: 0.5, WinPositions: 1,
				TotalPositions: 2, SharpeRatio: 0.3, MDD: 2,
			},
			ROINormalized: 1, PnLNormalized: 0, SharpeRatioNormalized: 0, WinRateNormalized: 0,
			Score: 0.4, Rank: 1,
		},
		{
			AccountMetrics: model.AccountMetrics{
				AccountID: "B", PnL: 3, ROI: 0, WinRate: 1, WinPositions: 1,
				TotalPositions: 1, SharpeRatio: 3, MDD: 0,
			},
			ROINormalized: 0, PnLNormalized: math.NaN(), SharpeRatioNormalized: 1, WinRateNormalized: 1,
			Score: math.NaN(), Rank: 0,
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return records
}

func TestFileSink(t *testing.T) {
	ctx := context.Background()

	Convey("Given a CSV file location", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "top_20_accounts.csv")
		So(os.WriteFile(path, []byte("stale"), 0o600), ShouldBeNil)

		s, err := New(path)
		So(err, ShouldBeNil)

		Convey("When the leaderboard is written", func() {
			So(s.Write(ctx, leaderboard()), ShouldBeNil)
			records := readCSV(t, path)

			Convey("Then the header should lead with the account column", func() {
				So(records[0], ShouldResemble, Columns("Port_IDs"))
				So(records, ShouldHaveLength, 3)
			})

			Convey("Then values should use the shortest float form", func() {
				So(records[1], ShouldResemble, []string{
					"A", "3.0", "0.2", "0.5", "1", "2", "0.3", "2.0",
					"1.0", "0.0", "0.0", "0.0", "0.4", "1",
				})
			})

			Convey("Then NaN and unranked cells should be empty", func() {
				So(records[2][9], ShouldEqual, "")
				So(records[2][12], ShouldEqual, "")
				So(records[2][13], ShouldEqual, "")
			})

			Convey("Then no temp files should be left behind", func() {
				entries, err := os.ReadDir(dir)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a custom account column", t, func() {
		path := filepath.Join(t.TempDir(), "out.csv")
		s, err := New(path, WithAccountColumn("account"))
		So(err, ShouldBeNil)
		So(s.Write(ctx, leaderboard()[:1]), ShouldBeNil)
		So(readCSV(t, path)[0][0], ShouldEqual, "account")
	})

	Convey("Given a directory that does not exist", t, func() {
		s, err := New(filepath.Join(t.TempDir(), "missing", "out.csv"))
		So(err, ShouldBeNil)

		Convey("Then the write should fail", func() {
			So(errors.Is(s.Write(ctx, leaderboard()), ErrSinkWrite), ShouldBeTrue)
		})
	})
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()

	Convey("Given a SQLite location", t, func() {
		path := filepath.Join(t.TempDir(), "board.db")
		s, err := New(path)
		So(err, ShouldBeNil)
		So(s, ShouldHaveSameTypeAs, &sqliteSink{})

		Convey("When the leaderboard is written twice", func() {
			So(s.Write(ctx, leaderboard()), ShouldBeNil)
			So(s.Write(ctx, leaderboard()[:1]), ShouldBeNil)

			db, err := sql.Open("sqlite3", path)
			So(err, ShouldBeNil)
			defer db.Close()

			Convey("Then the table should hold only the last batch", func() {
				var count int
				So(db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&count), ShouldBeNil)
				So(count, ShouldEqual, 1)

				var id string
				var score float64
				var rank int
				So(db.QueryRowContext(ctx, `SELECT "Port_IDs", "Score", "Rank" FROM `+TableName).Scan(&id, &score, &rank), ShouldBeNil)
				So(id, ShouldEqual, "A")
				So(score, ShouldEqual, 0.4)
				So(rank, ShouldEqual, 1)
			})
		})

		Convey("When a NaN is written", func() {
			So(s.Write(ctx, leaderboard()), ShouldBeNil)

			db, err := sql.Open("sqlite3", path)
			So(err, ShouldBeNil)
			defer db.Close()

			Convey("Then it should be stored as NULL", func() {
				var score sql.NullFloat64
				So(db.QueryRowContext(ctx, `SELECT "Score" FROM `+TableName+` WHERE "Port_IDs" = 'B'`).Scan(&score), ShouldBeNil)
				So(score.Valid, ShouldBeFalse)
			})
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given output locations", t, func() {
		Convey("When the location is an object", func() {
			s, err := New("s3://boards/top.csv")
			So(err, ShouldBeNil)
			obj, ok := s.(*objectSink)
			So(ok, ShouldBeTrue)
			So(obj.storage.Bucket, ShouldEqual, "boards")
			So(obj.key, ShouldEqual, "top.csv")
		})

		Convey("When the object location lacks a key", func() {
			_, err := New("s3://boards")
			So(err, ShouldNotBeNil)
		})

		Convey("When the location has a sqlite suffix", func() {
			s, err := New("out.SQLITE")
			So(err, ShouldBeNil)
			So(s, ShouldHaveSameTypeAs, &sqliteSink{})
		})
	})
}

func TestFormatFloat(t *testing.T) {
	Convey("Given float values", t, func() {
		So(FormatFloat(3), ShouldEqual, "3.0")
		So(FormatFloat(0.1+0.2), ShouldEqual, "0.30000000000000004")
		So(FormatFloat(-2.5), ShouldEqual, "-2.5")
		So(FormatFloat(1e-5), ShouldEqual, "1e-05")
		So(FormatFloat(1e16), ShouldEqual, "1e+16")
		So(FormatFloat(123456789.0), ShouldEqual, "123456789.0")
		So(FormatFloat(math.NaN()), ShouldEqual, "")
		So(FormatFloat(math.Inf(-1)), ShouldEqual, "-inf")
	})
}
