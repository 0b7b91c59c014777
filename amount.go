package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a money value made of whole dollars and cents.
//
// Construction carries cents of 100 or more into dollars. Negative cents are
// kept as they are: there is no borrowing, so NewAmount(1, -50) stays (1, -50).
// Amounts order lexicographically on (dollars, cents).
type Amount struct {
	dollars int64
	cents   int64
}

// NewAmount creates a normalized Amount.
func NewAmount(dollars, cents int64) Amount {
	if cents >= 100 {
		dollars += cents / 100
		cents %= 100
	}
	return Amount{dollars: dollars, cents: cents}
}

// ZeroAmount returns (0, 0).
func ZeroAmount() Amount {
	return Amount{}
}

// Dollars returns the dollar component.
func (a Amount) Dollars() int64 { return a.dollars }

// Cents returns the cent component.
func (a Amount) Cents() int64 { return a.cents }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return NewAmount(a.dollars+b.dollars, a.cents+b.cents)
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return NewAmount(a.dollars-b.dollars, a.cents-b.cents)
}

// Neg returns -a, negating each component.
func (a Amount) Neg() Amount {
	return NewAmount(-a.dollars, -a.cents)
}

// Compare returns -1, 0 or 1 comparing (dollars, cents) lexicographically.
func (a Amount) Compare(b Amount) int {
	switch {
	case a.dollars < b.dollars:
		return -1
	case a.dollars > b.dollars:
		return 1
	case a.cents < b.cents:
		return -1
	case a.cents > b.cents:
		return 1
	default:
		return 0
	}
}

// Equal reports whether both components match.
func (a Amount) Equal(b Amount) bool { return a.Compare(b) == 0 }

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.Compare(b) > 0 }

// GreaterOrEqual reports a >= b.
func (a Amount) GreaterOrEqual(b Amount) bool { return a.Compare(b) >= 0 }

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool { return a.Compare(b) < 0 }

// IsNegative reports a < (0, 0).
func (a Amount) IsNegative() bool { return a.LessThan(Amount{}) }

// IsZero reports a == (0, 0).
func (a Amount) IsZero() bool { return a.dollars == 0 && a.cents == 0 }

// TotalCents returns dollars*100 + cents.
func (a Amount) TotalCents() int64 {
	return a.dollars*100 + a.cents
}

// TotalDollars returns dollars + cents/100 as a float.
func (a Amount) TotalDollars() float64 {
	return float64(a.dollars) + float64(a.cents)/100
}

// Div divides a by b.
//
// This is not exact rational division. It keeps the historical behavior of the
// ledger's money type:
//   - a divisor greater than the dividend returns the dividend unchanged
//   - a dividend without dollars divides the cent components as integers
//   - a divisor without dollars divides total cents and splits the float result
//   - otherwise total dollars are divided and the fraction is rounded to two
//     decimals, whose digits become the cents (0.5 yields 5 cents, not 50)
func (a Amount) Div(b Amount) (Amount, error) {
	if b.GreaterThan(a) {
		return a, nil
	}

	if a.dollars == 0 {
		if b.cents == 0 {
			return Amount{}, ErrDivisionByZero
		}
		return NewAmount(0, a.cents/b.cents), nil
	}

	if b.dollars == 0 {
		if b.TotalCents() == 0 {
			return Amount{}, ErrDivisionByZero
		}
		result := float64(a.TotalCents()) / float64(b.TotalCents()) / 100
		whole, frac := math.Modf(result)
		return NewAmount(int64(whole), int64(frac*100)), nil
	}

	whole, frac := math.Modf(a.TotalDollars() / b.TotalDollars())
	return NewAmount(int64(whole), twoDigitsAfterPoint(frac)), nil
}

// twoDigitsAfterPoint rounds f to two decimals and reads back the digits
// written after the decimal point of its shortest representation.
func twoDigitsAfterPoint(f float64) int64 {
	s := strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	} else {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// String renders the amount as dollars.cents.
func (a Amount) String() string {
	if a.cents < 0 {
		return fmt.Sprintf("%d.-%02d", a.dollars, -a.cents)
	}
	return fmt.Sprintf("%d.%02d", a.dollars, a.cents)
}

type amountJSON struct {
	Dollars int64 `json:"dollars"`
	Cents   int64 `json:"cents"`
}

// MarshalJSON encodes the amount as {"dollars":D,"cents":C}.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountJSON{Dollars: a.dollars, Cents: a.cents})
}

// UnmarshalJSON decodes {"dollars":D,"cents":C} and normalizes it.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var v amountJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = NewAmount(v.Dollars, v.Cents)
	return nil
}
