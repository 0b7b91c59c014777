package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAmount(t *testing.T) {
	tests := []struct {
		name           string
		dollars, cents int64
		wantD, wantC   int64
	}{
		{"plain", 5, 12, 5, 12},
		{"cents carried into dollars", 8, 253, 10, 53},
		{"exactly one hundred cents", 1, 100, 2, 0},
		{"negative cents are kept", 1, -50, 1, -50},
		{"negative", -50, -24, -50, -24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAmount(tt.dollars, tt.cents)
			assert.Equal(t, tt.wantD, a.Dollars())
			assert.Equal(t, tt.wantC, a.Cents())
		})
	}
}

func TestAmount_Compare(t *testing.T) {
	assert.True(t, NewAmount(5, 43).Equal(NewAmount(5, 43)))
	assert.False(t, NewAmount(3, 1).Equal(NewAmount(6, 32)))
	assert.True(t, NewAmount(9, 99).GreaterThan(NewAmount(2, 23)))
	assert.True(t, NewAmount(9, 21).GreaterThan(NewAmount(2, 23)))
	assert.True(t, NewAmount(43, 12).GreaterThan(NewAmount(1, 99)))
	assert.True(t, NewAmount(1, 98).LessThan(NewAmount(6, 24)))
	assert.True(t, NewAmount(50, 23).GreaterOrEqual(NewAmount(20, 1)))
	assert.True(t, NewAmount(20, 44).GreaterOrEqual(NewAmount(20, 44)))
	assert.Equal(t, 0, NewAmount(1, 1).Compare(NewAmount(1, 1)))
}

func TestAmount_Arithmetic(t *testing.T) {
	assert.Equal(t, NewAmount(-50, -24), NewAmount(50, 24).Neg())
	assert.Equal(t, NewAmount(11, 30), NewAmount(5, 80).Add(NewAmount(5, 50)))
	assert.Equal(t, NewAmount(80, 25), NewAmount(100, 50).Sub(NewAmount(20, 25)))
	assert.True(t, ZeroAmount().Sub(NewAmount(1, 0)).IsNegative())
	assert.True(t, ZeroAmount().IsZero())
	assert.False(t, ZeroAmount().IsNegative())
}

func TestAmount_SubUndoesAdd(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Amount
		sameParts bool
	}{
		{"no carry", NewAmount(5, 20), NewAmount(3, 30), true},
		{"negative operand", NewAmount(5, 20), NewAmount(-3, -10), true},
		{"cents carry", NewAmount(0, 50), NewAmount(0, 60), false},
		{"carry into a whole dollar", NewAmount(3, 99), NewAmount(0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Add(tt.b).Sub(tt.b)

			assert.Equal(t, tt.a.TotalCents(), got.TotalCents())
			assert.Equal(t, tt.sameParts, got.Equal(tt.a), "got %s", got)
		})
	}

	// A carry is not undone by Sub: the cents stay negative.
	got := NewAmount(0, 50).Add(NewAmount(0, 60)).Sub(NewAmount(0, 60))
	assert.Equal(t, int64(1), got.Dollars())
	assert.Equal(t, int64(-50), got.Cents())
}

func TestAmount_DoubleNegation(t *testing.T) {
	for _, a := range []Amount{
		ZeroAmount(),
		NewAmount(5, 43),
		NewAmount(-5, -43),
		NewAmount(1, -50),
		NewAmount(0, -99),
	} {
		assert.Equal(t, a, a.Neg().Neg(), "amount %s", a)
	}

	// Cents at or below -100 are carried on the way back.
	a := NewAmount(0, -50).Sub(NewAmount(0, 60))
	assert.Equal(t, int64(-110), a.Cents())
	assert.Equal(t, a.TotalCents(), a.Neg().Neg().TotalCents())
}

func TestAmount_Trichotomy(t *testing.T) {
	amounts := []Amount{
		ZeroAmount(),
		NewAmount(0, 1),
		NewAmount(0, -1),
		NewAmount(1, -60),
		NewAmount(0, 40),
		NewAmount(1, 0),
		NewAmount(-1, 99),
		NewAmount(-2, -5),
	}

	for _, a := range amounts {
		for _, b := range amounts {
			holds := 0
			for _, ok := range []bool{a.GreaterThan(b), a.Equal(b), a.LessThan(b)} {
				if ok {
					holds++
				}
			}
			assert.Equal(t, 1, holds, "%s vs %s", a, b)
			assert.Equal(t, -a.Compare(b), b.Compare(a))
		}
	}
}

func TestAmount_Totals(t *testing.T) {
	assert.Equal(t, int64(942), NewAmount(9, 42).TotalCents())
	assert.InDelta(t, 4.12, NewAmount(4, 12).TotalDollars(), 1e-9)
}

func TestAmount_Div(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Amount
		expected Amount
	}{
		{"divisor without cents", NewAmount(10, 30), NewAmount(2, 0), NewAmount(5, 15)},
		{"divisor without dollars", NewAmount(2, 50), NewAmount(0, 10), NewAmount(0, 25)},
		{"dividend without cents", NewAmount(6, 0), NewAmount(1, 50), NewAmount(4, 0)},
		{"dividend without dollars", NewAmount(0, 60), NewAmount(0, 30), NewAmount(0, 2)},
		{"divisor greater than dividend", NewAmount(1, 50), NewAmount(5, 70), NewAmount(1, 50)},
		{"no zeros", NewAmount(50, 80), NewAmount(25, 40), NewAmount(2, 0)},
		{"negative divisor", NewAmount(12, 0), NewAmount(-3, 0), NewAmount(-4, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Div(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("by zero", func(t *testing.T) {
		_, err := NewAmount(12, 32).Div(ZeroAmount())
		assert.ErrorIs(t, err, ErrDivisionByZero)

		_, err = NewAmount(0, 32).Div(ZeroAmount())
		assert.ErrorIs(t, err, ErrDivisionByZero)
	})
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "5.07", NewAmount(5, 7).String())
	assert.Equal(t, "-5.-07", NewAmount(-5, -7).String())
	assert.Equal(t, "0.00", ZeroAmount().String())
}

func TestAmount_JSON(t *testing.T) {
	data, err := json.Marshal(NewAmount(12, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"dollars":12,"cents":5}`, string(data))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`{"dollars":1,"cents":150}`), &a))
	assert.Equal(t, NewAmount(2, 50), a)

	assert.Error(t, json.Unmarshal([]byte(`"1.50"`), &a))
}
