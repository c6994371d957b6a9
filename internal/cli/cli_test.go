package cli

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/tradeboard/internal/adapters/repository"
	"github.com/okian/tradeboard/internal/config"
	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func execute(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), err
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a temp working directory", t, func() {
		dir := t.TempDir()
		input := filepath.Join(dir, "trade_data.csv")
		output := filepath.Join(dir, "top.csv")

		convey.Convey("When a dataset is generated and ranked", func() {
			out, err := execute(ctx, "generate", "--accounts", "40", "--seed", "3", "--output", input)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "Wrote 40 accounts")

			metricsFile := filepath.Join(dir, "metrics.prom")
			out, err = execute(ctx, "run", "--input", input, "--output", output, "--top", "5", "--workers", "3", "--metrics-file", metricsFile)

			convey.Convey("Then the run should report progress and complete", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldStartWith, "Loading and cleaning data...\n")
				convey.So(out, convey.ShouldContainSubstring, "Saving results to "+output+"...\n")
				convey.So(out, convey.ShouldEndWith, "Analysis complete.\n")
			})

			convey.Convey("Then the leaderboard and metrics files should exist", func() {
				data, err := os.ReadFile(output)
				convey.So(err, convey.ShouldBeNil)
				convey.So(strings.HasPrefix(string(data), "Port_IDs,PnL,ROI,"), convey.ShouldBeTrue)

				prom, err := os.ReadFile(metricsFile)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(prom), convey.ShouldContainSubstring, "tradeboard_pipeline_rows_read_total")
			})
		})

		convey.Convey("When the input is missing", func() {
			_, err := execute(ctx, "run", "--input", filepath.Join(dir, "absent.csv"), "--output", output)

			convey.Convey("Then the error should say so and no output should be written", func() {
				convey.So(errors.Is(err, model.ErrSourceNotFound), convey.ShouldBeTrue)
				_, statErr := os.Stat(output)
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When --top is not positive", func() {
			_, err := execute(ctx, "run", "--input", input, "--top", "0")

			convey.Convey("Then the configuration should be invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_, err := execute(ctx, "--config", filepath.Join(dir, "missing.yaml"), "run")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When an unknown command is given", func() {
			_, err := execute(ctx, "rank-everything")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given a loaded store behind the HTTP handler", t, func() {
		store := repository.NewSnapshotStore(repository.WithMaxLimit(10))
		err := store.Load(context.Background(), repository.Snapshot{
			Ranked: []model.RankedAccount{{AccountMetrics: model.AccountMetrics{AccountID: "A"}, Score: 1, Rank: 1}},
		})
		convey.So(err, convey.ShouldBeNil)
		handler := newHandler(store, 10)

		convey.Convey("Then the routes should be served", func() {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rank/A", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When the server runs until its context ends", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			convey.So(err, convey.ShouldBeNil)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- serve(ctx, logger.Nop(), ln, handler) }()

			resp, err := http.Get("http://" + ln.Addr().String() + "/leaderboard?limit=1")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			cancel()

			convey.Convey("Then it should shut down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("server did not stop")
				}
			})
		})
	})
}
