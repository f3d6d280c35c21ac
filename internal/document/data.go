package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/render"
)

// Kind is the declared type of a data value.
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindDate   Kind = "date"
)

// Value is a single typed field of a draft's data mapping. A number parsed
// from user input keeps that input in Text so it renders as entered.
type Value struct {
	Kind   Kind
	Text   string
	Number decimal.Decimal
	Date   time.Time
}

// Bounds on numbers accepted from user input. Printing a decimal expands its
// exponent, so values outside them are rejected before they are ever printed.
const (
	maxNumberLen      = 64
	maxNumberDigits   = 40
	maxNumberExponent = 64
)

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func Number(d decimal.Decimal) Value { return Value{Kind: KindNumber, Number: d} }

func Date(t time.Time) Value { return Value{Kind: KindDate, Date: t} }

func NumberFromInt(n int64) Value { return Number(decimal.NewFromInt(n)) }

// NumberFromString parses s as a decimal and keeps s as the printed form.
// Numbers out of bounds fail with apperr.ErrValidation.
func NumberFromString(s string) (Value, error) {
	if len(s) > maxNumberLen {
		return Value{}, apperr.Newf(apperr.ErrValidation, "number is longer than %d characters", maxNumberLen)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Value{}, err
	}

	if exp := d.Exponent(); exp > maxNumberExponent || exp < -maxNumberExponent {
		return Value{}, apperr.Newf(apperr.ErrValidation, "number exponent %d is out of range ±%d", exp, maxNumberExponent)
	}

	if d.NumDigits() > maxNumberDigits {
		return Value{}, apperr.Newf(apperr.ErrValidation, "number has more than %d digits", maxNumberDigits)
	}

	return Value{Kind: KindNumber, Number: d, Text: s}, nil
}

// String renders the value the way it appears in a generated document.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if v.Text != "" {
			return v.Text
		}

		return v.Number.String()
	case KindDate:
		return v.Date.Format(render.DateLayout)
	default:
		return v.Text
	}
}

// MarshalJSON writes numbers as JSON numbers, dates as YYYY-MM-DD strings and
// text as strings. A number entered in a form JSON cannot carry, such as
// "007", is written as a string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		if v.Text == "" {
			return []byte(v.Number.String()), nil
		}

		if json.Valid([]byte(v.Text)) {
			return []byte(v.Text), nil
		}

		return json.Marshal(v.Text)
	case KindDate:
		return json.Marshal(v.Date.Format(time.DateOnly))
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON accepts numbers, strings and null. Strings in YYYY-MM-DD form
// become dates; null becomes empty text.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	switch {
	case bytes.Equal(b, []byte("null")):
		*v = Text("")
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		if t, err := time.Parse(time.DateOnly, s); err == nil {
			*v = Date(t)
			return nil
		}

		*v = Text(s)

		return nil
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*v = Text(string(b))
		return nil
	}

	n, err := NumberFromString(string(b))
	if apperr.Is(err, apperr.ErrValidation) {
		return err
	}

	if err != nil {
		return fmt.Errorf("unsupported value %s: must be a string, number or null", b)
	}

	*v = n

	return nil
}

// Data is the typed field mapping of a draft.
type Data map[string]Value

// Clone returns a copy safe to hand to a version snapshot.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}

	return out
}

// Conform checks d against a template schema. Text that holds a number is
// promoted for numeric fields; anything else that cannot be a number is a
// render error. Keys the schema does not know are kept untouched.
func (d Data) Conform(schema render.Schema) (Data, error) {
	out := d.Clone()

	for name, field := range schema {
		v, ok := out[name]
		if !ok || field.Type != render.FieldNumber || v.Kind == KindNumber {
			continue
		}

		if v.Kind == KindText && v.Text == "" {
			continue
		}

		if v.Kind == KindText {
			n, err := NumberFromString(v.Text)
			if err == nil {
				out[name] = n
				continue
			}

			if apperr.Is(err, apperr.ErrValidation) {
				return nil, apperr.WithHint(
					fmt.Errorf("field %q: %w", name, err),
					fmt.Sprintf("%s is out of range", field.Title),
				)
			}
		}

		return nil, apperr.WithHint(
			apperr.Newf(apperr.ErrRender, "field %q must be a number, got %s %q", name, v.Kind, v.String()),
			fmt.Sprintf("%s must be a number", field.Title),
		)
	}

	return out, nil
}

// RenderContext flattens d into the values handed to the renderer.
func (d Data) RenderContext() map[string]any {
	ctx := make(map[string]any, len(d)+2)
	for k, v := range d {
		ctx[k] = v.String()
	}

	return ctx
}
