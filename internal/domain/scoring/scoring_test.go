package scoring_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/okian/tradeboard/internal/domain/model"
	scoring "github.com/okian/tradeboard/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func uniform(id string, v float64) model.AccountMetrics {
	return model.AccountMetrics{AccountID: id, ROI: v, PnL: v, SharpeRatio: v, WinRate: v, TotalPositions: 1}
}

func TestRanker_Rank(t *testing.T) {
	Convey("Given the two-account example", t, func() {
		metrics := []model.AccountMetrics{
			{AccountID: "A", PnL: 3, ROI: 0.2, WinRate: 0.5, WinPositions: 1, TotalPositions: 2, SharpeRatio: 0.303, MDD: 2},
			{AccountID: "B", PnL: 3, ROI: 0, WinRate: 1, WinPositions: 1, TotalPositions: 1, SharpeRatio: 3, MDD: 0},
		}

		Convey("When ranking with the default zero policy", func() {
			ranked, err := scoring.NewRanker().Rank(metrics, 20)

			Convey("Then both accounts should be ranked", func() {
				So(err, ShouldBeNil)
				So(ranked, ShouldHaveLength, 2)
				So(ranked[0].AccountID, ShouldEqual, "A")
				So(ranked[0].Rank, ShouldEqual, 1)
				So(ranked[0].Score, ShouldAlmostEqual, 0.4, 1e-12)
				So(ranked[1].AccountID, ShouldEqual, "B")
				So(ranked[1].Rank, ShouldEqual, 2)
				So(ranked[1].Score, ShouldAlmostEqual, 0.3, 1e-12)
			})

			Convey("Then the zero-spread metric should normalize to 0", func() {
				So(ranked[0].PnLNormalized, ShouldEqual, 0.0)
				So(ranked[1].PnLNormalized, ShouldEqual, 0.0)
				So(ranked[0].ROINormalized, ShouldEqual, 1.0)
				So(ranked[1].SharpeRatioNormalized, ShouldEqual, 1.0)
			})
		})

		Convey("When ranking with the nan policy", func() {
			r := scoring.NewRanker(scoring.WithZeroSpreadPolicy(scoring.ZeroSpreadNaN))
			all := r.RankAll(metrics)
			top, err := r.Rank(metrics, 20)

			Convey("Then NaN should propagate and leave the accounts unranked", func() {
				So(err, ShouldBeNil)
				So(math.IsNaN(all[0].PnLNormalized), ShouldBeTrue)
				So(math.IsNaN(all[0].Score), ShouldBeTrue)
				So(all[0].Rank, ShouldEqual, 0)
				So(all[1].Rank, ShouldEqual, 0)
				So(top, ShouldBeEmpty)
			})
		})
	})

	Convey("Given accounts with tied scores", t, func() {
		metrics := []model.AccountMetrics{uniform("x", 5), uniform("y", 5), uniform("z", 1)}

		Convey("When ranking", func() {
			ranked, err := scoring.NewRanker().Rank(metrics, 3)

			Convey("Then ties should share a rank and the next rank should skip", func() {
				So(err, ShouldBeNil)
				So([]int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank}, ShouldResemble, []int{1, 1, 3})
				So(ranked[0].AccountID, ShouldEqual, "x")
				So(ranked[1].AccountID, ShouldEqual, "y")
			})
		})
	})

	Convey("Given 25 accounts where ranks 19 to 22 tie", t, func() {
		var metrics []model.AccountMetrics
		for i := 0; i < 25; i++ {
			v := float64(25 - i)
			if i >= 18 && i <= 21 {
				v = 7
			}
			metrics = append(metrics, uniform(fmt.Sprintf("acc-%02d", i), v))
		}

		Convey("When selecting the top 20", func() {
			ranked, err := scoring.NewRanker().Rank(metrics, 20)

			Convey("Then every tied account should be included", func() {
				So(err, ShouldBeNil)
				So(ranked, ShouldHaveLength, 22)
				for _, a := range ranked[18:] {
					So(a.Rank, ShouldEqual, 19)
				}
				So(ranked[17].Rank, ShouldEqual, 18)
			})

			Convey("Then every normalized value should lie in [0, 1]", func() {
				for _, a := range ranked {
					for _, v := range []float64{a.ROINormalized, a.PnLNormalized, a.SharpeRatioNormalized, a.WinRateNormalized} {
						So(v, ShouldBeBetweenOrEqual, 0.0, 1.0)
					}
				}
			})
		})

		Convey("When selecting fewer rows than accounts without a tie", func() {
			ranked, err := scoring.NewRanker().Rank(metrics, 5)

			Convey("Then exactly n rows should be returned", func() {
				So(err, ShouldBeNil)
				So(ranked, ShouldHaveLength, 5)
			})
		})
	})

	Convey("Given custom weights", t, func() {
		metrics := []model.AccountMetrics{
			{AccountID: "roi", ROI: 1, PnL: 0},
			{AccountID: "pnl", ROI: 0, PnL: 1},
		}
		r := scoring.NewRanker(scoring.WithWeights(scoring.Weights{PnL: 1}))

		Convey("Then only the weighted metric should count", func() {
			ranked, err := r.Rank(metrics, 1)
			So(err, ShouldBeNil)
			So(ranked, ShouldHaveLength, 1)
			So(ranked[0].AccountID, ShouldEqual, "pnl")
			So(r.Weights().PnL, ShouldEqual, 1.0)
		})

		Convey("And invalid weights are supplied", func() {
			r := scoring.NewRanker(scoring.WithWeights(scoring.Weights{ROI: -1}))

			Convey("Then the defaults should be kept", func() {
				So(r.Weights(), ShouldResemble, scoring.DefaultWeights())
				So(scoring.Weights{ROI: math.NaN()}.Validate(), ShouldNotBeNil)
			})
		})
	})

	Convey("Given an invalid top n", t, func() {
		_, err := scoring.NewRanker().Rank([]model.AccountMetrics{uniform("a", 1)}, 0)

		Convey("Then ranking should fail", func() {
			So(errors.Is(err, scoring.ErrInvalidTopN), ShouldBeTrue)
		})
	})
}

func TestParseZeroSpreadPolicy(t *testing.T) {
	Convey("Given policy names", t, func() {
		Convey("Then known names should parse", func() {
			p, err := scoring.ParseZeroSpreadPolicy("nan")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, scoring.ZeroSpreadNaN)
		})

		Convey("Then unknown names should fail", func() {
			_, err := scoring.ParseZeroSpreadPolicy("average")
			So(errors.Is(err, scoring.ErrInvalidPolicy), ShouldBeTrue)
		})
	})
}
