package decode

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/okian/tradeboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCanonicalDecoding(t *testing.T) {
	Convey("Given canonical text", t, func() {
		Convey("When it is a list of trade mappings", func() {
			v, ok := Decode(model.TextRaw(`[{"price": 10, "quantity": 2, "realizedProfit": 5.5}]`))

			Convey("Then it should decode to ordered objects", func() {
				So(ok, ShouldBeTrue)
				items, isList := v.([]model.Value)
				So(isList, ShouldBeTrue)
				So(items, ShouldHaveLength, 1)
				obj := items[0].(*model.Object)
				So(obj.Keys(), ShouldResemble, []string{"price", "quantity", "realizedProfit"})
				p, _ := obj.Get("realizedProfit")
				So(p, ShouldEqual, 5.5)
			})
		})

		Convey("When it carries non-finite tokens", func() {
			v, ok := Decode(model.TextRaw(`[NaN, Infinity, -Infinity]`))

			Convey("Then they should become float values", func() {
				So(ok, ShouldBeTrue)
				items := v.([]model.Value)
				So(math.IsNaN(items[0].(float64)), ShouldBeTrue)
				So(math.IsInf(items[1].(float64), 1), ShouldBeTrue)
				So(math.IsInf(items[2].(float64), -1), ShouldBeTrue)
			})
		})

		Convey("When keys repeat", func() {
			v, ok := Decode(model.TextRaw(`{"a": 1, "b": 2, "a": 3}`))

			Convey("Then the first position and the last value should win", func() {
				So(ok, ShouldBeTrue)
				obj := v.(*model.Object)
				So(obj.Keys(), ShouldResemble, []string{"a", "b"})
				a, _ := obj.Get("a")
				So(a, ShouldEqual, 3.0)
			})
		})

		Convey("When strings carry escapes", func() {
			v, err := Canonical(`"a\"b\\c\né😀"`)

			Convey("Then they should be resolved", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "a\"b\\c\né😀")
			})
		})

		Convey("When the text is malformed", func() {
			for _, text := range []string{"{not json", "", "[1, 2,]", "{'a': 1}", "01", "\"tab	here\"", "nan"} {
				_, err := Canonical(text)
				So(err, ShouldNotBeNil)
				var se *SyntaxError
				So(errors.As(err, &se), ShouldBeTrue)
			}
		})
	})
}

func TestLiteralDecoding(t *testing.T) {
	Convey("Given literal text", t, func() {
		Convey("When it uses single quotes and literal names", func() {
			v, ok := Decode(model.TextRaw(`[{'price': 10, 'open': True, 'note': None, 'closed': False}]`))

			Convey("Then it should decode like the canonical form", func() {
				So(ok, ShouldBeTrue)
				obj := v.([]model.Value)[0].(*model.Object)
				So(obj.Keys(), ShouldResemble, []string{"price", "open", "note", "closed"})
				open, _ := obj.Get("open")
				So(open, ShouldEqual, true)
				note, present := obj.Get("note")
				So(present, ShouldBeTrue)
				So(note, ShouldBeNil)
			})
		})

		Convey("When it has tuples and trailing commas", func() {
			v, ok := Decode(model.TextRaw(`({'price': 1,}, {'price': 2},)`))

			Convey("Then tuples should become sequences", func() {
				So(ok, ShouldBeTrue)
				So(v.([]model.Value), ShouldHaveLength, 2)
			})
		})

		Convey("When a parenthesised value has no comma", func() {
			v, err := Literal(`(5)`)

			Convey("Then it should be the bare value", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 5.0)
			})
		})

		Convey("When primitive keys are used", func() {
			v, err := Literal(`{1: 'a', 1.5: 'b', True: 'c', None: 'd'}`)

			Convey("Then they should be rendered as strings", func() {
				So(err, ShouldBeNil)
				So(v.(*model.Object).Keys(), ShouldResemble, []string{"1", "1.5", "true", "null"})
			})
		})

		Convey("When numbers use literal forms", func() {
			v, err := Literal(`[0x10, 1_000, -2.5e1, .5, +3]`)

			Convey("Then they should be parsed as floats", func() {
				So(err, ShouldBeNil)
				So(v, ShouldResemble, []model.Value{16.0, 1000.0, -25.0, 0.5, 3.0})
			})
		})

		Convey("When adjacent strings and escapes appear", func() {
			v, err := Literal(`'ab' "cd" '\x41\t' r'\n'`)

			Convey("Then they should be concatenated", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "abcdA\t\\n")
			})
		})

		Convey("When it contains non-primitive constructs", func() {
			for _, text := range []string{
				`{(1, 2): 'a'}`,
				`{1, 2}`,
				`b'bytes'`,
				`1+2j`,
				`nan`,
				`f(1)`,
				`--5`,
			} {
				_, err := Literal(text)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestDecodeAbsent(t *testing.T) {
	Convey("Given fields with nothing to decode", t, func() {
		Convey("Then missing, empty and garbage text should be absent", func() {
			for _, raw := range []model.Raw{
				model.NARaw(),
				model.TextRaw(""),
				model.TextRaw("{not json"),
				model.StructuredRaw(nil),
				model.StructuredRaw(math.NaN()),
				model.StructuredRaw(func() {}),
			} {
				_, ok := Decode(raw)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("Then text decoding to null or NaN should be absent", func() {
			for _, text := range []string{"null", " null", "None", "NaN", " NaN\n"} {
				v, ok := Decode(model.TextRaw(text))
				So(ok, ShouldBeFalse)
				So(v, ShouldBeNil)
			}
		})

		Convey("Then other primitives should still decode", func() {
			v, ok := Decode(model.TextRaw("Infinity"))
			So(ok, ShouldBeTrue)
			So(math.IsInf(v.(float64), 1), ShouldBeTrue)
		})
	})

	Convey("Given nesting past the depth cap", t, func() {
		deep := strings.Repeat("[", maxDepth+1) + strings.Repeat("]", maxDepth+1)

		Convey("Then both dialects should reject it", func() {
			_, err := Canonical(deep)
			So(err, ShouldNotBeNil)
			_, err = Literal(deep)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStructuredDecoding(t *testing.T) {
	Convey("Given an already structured field", t, func() {
		in := []model.Value{
			map[string]model.Value{"quantity": 2, "price": int64(10)},
		}

		Convey("When it is decoded", func() {
			v, ok := Decode(model.StructuredRaw(in))

			Convey("Then it should be normalized to decoder shapes", func() {
				So(ok, ShouldBeTrue)
				obj := v.([]model.Value)[0].(*model.Object)
				So(obj.Keys(), ShouldResemble, []string{"price", "quantity"})
				price, _ := obj.Get("price")
				So(price, ShouldEqual, 10.0)
			})
		})
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	Convey("Given a decoded value", t, func() {
		text := `[{"b":1,"a":[true,false,null,"x\"y"],"c":1.25},NaN,-Infinity,1e+300]`
		v, err := Canonical(text)
		So(err, ShouldBeNil)

		Convey("When it is encoded", func() {
			out, err := Encode(v)

			Convey("Then decoding the encoding should yield the same text", func() {
				So(err, ShouldBeNil)
				again, err := Canonical(out)
				So(err, ShouldBeNil)
				out2, err := Encode(again)
				So(err, ShouldBeNil)
				So(out2, ShouldEqual, out)
				So(out, ShouldStartWith, `[{"b":1,"a":[true,false,null,"x\"y"],"c":1.25}`)
			})
		})

		Convey("When an object contains itself", func() {
			obj := model.NewObject()
			obj.Set("self", obj)
			_, err := Encode(obj)

			Convey("Then encoding should fail", func() {
				So(errors.Is(err, ErrTooDeep), ShouldBeTrue)
			})
		})
	})
}

func TestCustomStrategies(t *testing.T) {
	Convey("Given a decoder with only the canonical strategy", t, func() {
		d := New(WithStrategies(Canonical))

		Convey("Then literal text should not decode", func() {
			_, ok := d.DecodeText(`{'a': 1}`)
			So(ok, ShouldBeFalse)
			_, ok = d.DecodeText(`{"a": 1}`)
			So(ok, ShouldBeTrue)
		})
	})
}
