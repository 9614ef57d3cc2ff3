package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal money value. It accepts both JSON numbers and strings
// on decode, since persisted records carry prices in either form, sometimes
// with a leading currency symbol.
type Amount struct {
	decimal.Decimal
}

var currencyReplacer = strings.NewReplacer("$", "", "€", "", "£", "", ",", "")

func Zero() Amount {
	return Amount{decimal.Zero}
}

func FromFloat(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

func FromInt(i int64) Amount {
	return Amount{decimal.NewFromInt(i)}
}

// Parse coerces a raw price representation into an Amount. Currency symbols
// and thousands separators are stripped before parsing.
func Parse(raw string) (Amount, error) {
	s := strings.TrimSpace(currencyReplacer.Replace(raw))
	if s == "" {
		return Amount{}, errors.New("empty amount")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	return Amount{d}, nil
}

func (a Amount) Add(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal)}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{a.Decimal.Sub(b.Decimal)}
}

func (a Amount) MulInt(n int64) Amount {
	return Amount{a.Decimal.Mul(decimal.NewFromInt(n))}
}

func (a Amount) IsNegative() bool {
	return a.Decimal.IsNegative()
}

// Cents returns the amount in minor units, as payment providers expect.
func (a Amount) Cents() int64 {
	return a.Decimal.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

func (a Amount) String() string {
	return a.Decimal.String()
}

// Fixed renders the amount with two decimal places, the form payment
// providers want in text fields.
func (a Amount) Fixed() string {
	return a.Decimal.StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Decimal.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*a = parsed
	case float64:
		*a = FromFloat(v)
	case nil:
		*a = Zero()
	default:
		return fmt.Errorf("unsupported amount type %T", raw)
	}
	return nil
}
