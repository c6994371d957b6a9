package flatten

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/tradeboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var header = []string{DefaultAccountColumn, DefaultHistoryColumn}

func textRow(account, history string) model.RawAccountRow {
	return model.RawAccountRow{AccountID: account, History: model.TextRaw(history)}
}

func TestFlatten(t *testing.T) {
	ctx := context.Background()

	Convey("Given a flattener with default columns", t, func() {
		f := New()

		Convey("When one account holds three well-formed trades", func() {
			rows := []model.RawAccountRow{
				textRow("acc-1", `[{"price": 10, "quantity": 1, "realizedProfit": 5},
					{"price": 12, "quantity": 1, "realizedProfit": -2},
					{"price": 11, "quantity": 2, "realizedProfit": 1}]`),
			}
			res, err := f.Flatten(ctx, header, rows)

			Convey("Then three trade rows should share the account", func() {
				So(err, ShouldBeNil)
				So(res.Table.Rows, ShouldHaveLength, 3)
				So(res.Table.Columns, ShouldResemble, []string{"price", "quantity", "realizedProfit"})
				for _, r := range res.Table.Rows {
					So(r.AccountID, ShouldEqual, "acc-1")
				}
				So(res.Table.Rows[1].Values, ShouldResemble, []model.Value{12.0, 1.0, -2.0})
				So(res.Entries, ShouldEqual, 3)
			})
		})

		Convey("When trades are exact duplicates", func() {
			rows := []model.RawAccountRow{
				textRow("acc-1", `[{"price": 10, "quantity": 1, "realizedProfit": 5},
					{"price": 10, "quantity": 1, "realizedProfit": 5}]`),
				textRow("acc-1", `{'price': 10, 'quantity': 1, 'realizedProfit': 5}`),
				textRow("acc-2", `[{"price": 10, "quantity": 1, "realizedProfit": 5}]`),
			}
			res, err := f.Flatten(ctx, header, rows)

			Convey("Then duplicates within an account should collapse to one row", func() {
				So(err, ShouldBeNil)
				So(res.Table.Rows, ShouldHaveLength, 2)
				So(res.Duplicates, ShouldEqual, 2)
				So(res.Table.Rows[0].AccountID, ShouldEqual, "acc-1")
				So(res.Table.Rows[1].AccountID, ShouldEqual, "acc-2")
			})
		})

		Convey("When a trade carries an infinite price", func() {
			rows := []model.RawAccountRow{
				textRow("acc-1", `[{"price": Infinity, "quantity": 1, "realizedProfit": 5},
					{"price": 10, "quantity": 1, "realizedProfit": 5}]`),
			}
			res, err := f.Flatten(ctx, header, rows)

			Convey("Then that trade should be dropped", func() {
				So(err, ShouldBeNil)
				So(res.Table.Rows, ShouldHaveLength, 1)
				So(res.Dropped, ShouldEqual, 1)
			})
		})

		Convey("When trades have heterogeneous fields", func() {
			rows := []model.RawAccountRow{
				textRow("acc-1", `[{"price": 1, "quantity": 1, "realizedProfit": 1, "fee": {"amount": 0.1}}]`),
				textRow("acc-2", `[{"quantity": 2, "price": 2, "realizedProfit": 2, "fee": {"amount": 0.2}, "side": "BUY"},
					{"price": 3, "quantity": 3, "realizedProfit": 3}]`),
			}
			res, err := f.Flatten(ctx, header, rows)

			Convey("Then columns should be the union in first-appearance order", func() {
				So(err, ShouldBeNil)
				So(res.Table.Columns, ShouldResemble, []string{"price", "quantity", "realizedProfit", "fee.amount", "side"})
			})

			Convey("Then rows missing a field should be dropped as null", func() {
				So(res.Table.Rows, ShouldHaveLength, 1)
				So(res.Table.Rows[0].AccountID, ShouldEqual, "acc-2")
				So(res.Dropped, ShouldEqual, 2)
			})
		})

		Convey("When some histories do not decode", func() {
			rows := []model.RawAccountRow{
				textRow("acc-1", `{not json`),
				{AccountID: "acc-2", History: model.NARaw()},
				textRow("acc-3", `[1, "x", {"price": 1, "quantity": 1, "realizedProfit": 1}]`),
			}
			res, err := f.Flatten(ctx, header, rows)

			Convey("Then they should be counted and skipped", func() {
				So(err, ShouldBeNil)
				So(res.InvalidRows, ShouldEqual, 2)
				So(res.Table.Rows, ShouldHaveLength, 1)
				So(res.Table.Rows[0].AccountID, ShouldEqual, "acc-3")
			})
		})

		Convey("When histories decode to null or NaN", func() {
			rows := []model.RawAccountRow{
				textRow("acc-1", " null"),
				textRow("acc-2", "None"),
				textRow("acc-3", "NaN"),
				textRow("acc-4", `[{"price": 1, "quantity": 1, "realizedProfit": 1}]`),
			}
			res, err := f.Flatten(ctx, header, rows)

			Convey("Then they should be counted as invalid rows", func() {
				So(err, ShouldBeNil)
				So(res.InvalidRows, ShouldEqual, 3)
				So(res.Table.Rows, ShouldHaveLength, 1)
				So(res.Table.Rows[0].AccountID, ShouldEqual, "acc-4")
			})
		})

		Convey("When trades differ only in the sign of zero", func() {
			rows := []model.RawAccountRow{
				textRow("acc-1", `[{"price": 0, "quantity": 1, "realizedProfit": 0.0},
					{"price": -0.0, "quantity": 1, "realizedProfit": -0.0}]`),
			}
			res, err := f.Flatten(ctx, header, rows)

			Convey("Then they should be duplicates", func() {
				So(err, ShouldBeNil)
				So(res.Table.Rows, ShouldHaveLength, 1)
				So(res.Duplicates, ShouldEqual, 1)
			})
		})

		Convey("When the account id is missing", func() {
			rows := []model.RawAccountRow{
				{AccountNA: true, History: model.TextRaw(`[{"price": 1, "quantity": 1, "realizedProfit": 1}]`)},
				textRow("acc-2", `[{"price": 1, "quantity": 1, "realizedProfit": 1}]`),
			}
			res, err := f.Flatten(ctx, header, rows)

			Convey("Then the row should be dropped", func() {
				So(err, ShouldBeNil)
				So(res.Table.Rows, ShouldHaveLength, 1)
				So(res.Dropped, ShouldEqual, 1)
			})
		})

		Convey("When the input has extra columns", func() {
			hdr := []string{"Region", DefaultAccountColumn, DefaultHistoryColumn}
			rows := []model.RawAccountRow{
				{
					AccountID: "acc-1",
					History:   model.TextRaw(`[{"price": 1, "quantity": 1, "realizedProfit": 1}]`),
					Extra:     []model.Field{{Name: "Region", Raw: model.TextRaw("eu")}},
				},
				{
					AccountID: "acc-2",
					History:   model.TextRaw(`[{"price": 1, "quantity": 1, "realizedProfit": 1}]`),
					Extra:     []model.Field{{Name: "Region", Raw: model.NARaw()}},
				},
			}
			res, err := f.Flatten(ctx, hdr, rows)

			Convey("Then they should lead the columns and count towards nulls", func() {
				So(err, ShouldBeNil)
				So(res.Table.Columns, ShouldResemble, []string{"Region", "price", "quantity", "realizedProfit"})
				So(res.Table.Rows, ShouldHaveLength, 1)
				So(res.Table.Rows[0].Values[0], ShouldEqual, "eu")
			})
		})
	})
}

func TestFlattenErrors(t *testing.T) {
	ctx := context.Background()

	Convey("Given a flattener", t, func() {
		f := New()

		Convey("When the header lacks the required columns", func() {
			_, err := f.Flatten(ctx, []string{"id"}, nil)

			Convey("Then a schema error should name them", func() {
				var se *model.SchemaError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Missing, ShouldResemble, []string{DefaultAccountColumn, DefaultHistoryColumn})
				So(errors.Is(err, model.ErrSchema), ShouldBeTrue)
			})
		})

		Convey("When no history decodes", func() {
			_, err := f.Flatten(ctx, header, []model.RawAccountRow{textRow("a", "garbage")})

			Convey("Then the dataset should be empty", func() {
				So(errors.Is(err, model.ErrEmptyDataset), ShouldBeTrue)
			})
		})

		Convey("When every history decodes to null", func() {
			res, err := f.Flatten(ctx, header, []model.RawAccountRow{
				textRow("a", "null"),
				textRow("b", "NaN"),
			})

			Convey("Then the rows should be invalid before any trade is built", func() {
				So(errors.Is(err, model.ErrEmptyDataset), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "no valid trade data")
				So(res.InvalidRows, ShouldEqual, 2)
				So(res.Entries, ShouldEqual, 0)
			})
		})

		Convey("When every trade is dropped", func() {
			_, err := f.Flatten(ctx, header, []model.RawAccountRow{
				textRow("a", `[{"price": NaN, "quantity": 1, "realizedProfit": 1}]`),
			})

			Convey("Then the dataset should be empty", func() {
				So(errors.Is(err, model.ErrEmptyDataset), ShouldBeTrue)
			})
		})
	})

	Convey("Given custom column names", t, func() {
		f := New(WithAccountColumn("account"), WithHistoryColumn("trades"))

		Convey("Then they should be required instead of the defaults", func() {
			res, err := f.Flatten(ctx, []string{"account", "trades"}, []model.RawAccountRow{
				textRow("a", `{"price": 1, "quantity": 1, "realizedProfit": 1}`),
			})
			So(err, ShouldBeNil)
			So(res.Table.Rows, ShouldHaveLength, 1)
			So(f.AccountColumn(), ShouldEqual, "account")
		})
	})
}
