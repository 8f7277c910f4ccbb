package numeric

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]string{
		"0.00186487": "0.00186487",
		"258.69":     "258.69",
		"1":          "1",
		"2.014e18":   "2014000000000000000",
		"1.697e16":   "16970000000000000",
		"2e7":        "20000000",
	}
	for raw, want := range cases {
		d, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, d.String(), raw)
	}

	for _, raw := range []string{"", " ", "abc", "1,5", "0x10", " 1", "1 "} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidAmount, raw)
	}
}

func TestParsePlainRejectsExponent(t *testing.T) {
	for _, raw := range []string{"0.12e3", "1E5", "2e7", "1.24e18"} {
		_, err := ParsePlain(raw)
		assert.ErrorIs(t, err, ErrInvalidAmount, raw)
	}

	d, err := ParsePlain("0.31837321")
	require.NoError(t, err)
	assert.Equal(t, "0.31837321", d.String())
}

func TestFromAtomic(t *testing.T) {
	d, err := FromAtomic("2.014e18", 18)
	require.NoError(t, err)
	assert.Equal(t, "2.014", d.String())

	d, err = FromAtomic("1.697e16", 18)
	require.NoError(t, err)
	assert.Equal(t, "0.01697", d.String())

	// Plain and exponent forms of the same value agree.
	plain, err := FromAtomic("2014000000000000000", 18)
	require.NoError(t, err)
	sci, err := FromAtomic("2.014e18", 18)
	require.NoError(t, err)
	assert.True(t, plain.Equal(sci))

	d, err = FromAtomic("20000000", 6)
	require.NoError(t, err)
	assert.Equal(t, "20", d.String())
}

func TestFitsPrecision(t *testing.T) {
	amount := decimal.RequireFromString("0.123456")
	assert.True(t, FitsPrecision(amount, 6))
	assert.True(t, FitsPrecision(amount, 8))
	assert.False(t, FitsPrecision(amount, 5))

	// Trailing zeros are not significant.
	assert.True(t, FitsPrecision(decimal.RequireFromString("1.10"), 1))
}

func TestMinimalUnit(t *testing.T) {
	assert.Equal(t, "0.00000001", MinimalUnit(8).String())
	assert.Equal(t, "1", MinimalUnit(0).String())
}
