package units

import (
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want *big.Int
	}{
		{"10", new(big.Int).Mul(big.NewInt(10), pow10(18))},
		{"0", big.NewInt(0)},
		{"0.5", new(big.Int).Mul(big.NewInt(5), pow10(17))},
		{".5", new(big.Int).Mul(big.NewInt(5), pow10(17))},
		{"5.", new(big.Int).Mul(big.NewInt(5), pow10(18))},
		{" 1.25 ", new(big.Int).Mul(big.NewInt(125), pow10(16))},
		{"0.000000000000000001", big.NewInt(1)},
		{"1.500000000000000000000", new(big.Int).Mul(big.NewInt(15), pow10(17))},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, 0, tt.want.Cmp(got), "ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", " ", "-1", "+1", "1e18", "abc", "1,000", "1.2.3", ".", "0.0000000000000000001", "0x10", "NaN"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "10", FormatAmount(new(big.Int).Mul(big.NewInt(10), pow10(18))))
	assert.Equal(t, "0.000000000000000001", FormatAmount(big.NewInt(1)))
	assert.Equal(t, "0", FormatAmount(nil))
	assert.Equal(t, "1.5", FormatAmountWithDecimals(big.NewInt(15), 1))
}

// Any amount with at most 18 fractional digits survives parse then format.
func TestAmountRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	digits := func(n int) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteByte(byte('0' + r.Intn(10)))
		}
		return b.String()
	}

	for i := 0; i < 500; i++ {
		text := digits(1 + r.Intn(12))
		if frac := r.Intn(Decimals + 1); frac > 0 {
			text += "." + digits(frac)
		}
		want := decimal.RequireFromString(text)
		if !want.IsPositive() {
			continue
		}

		base, err := ParseAmount(text)
		require.NoError(t, err, text)

		back := decimal.RequireFromString(FormatAmount(base))
		diff := back.Sub(want).Abs()
		assert.True(t, diff.LessThanOrEqual(decimal.New(1, -Decimals)), "round trip of %s gave %s", text, back)
	}
}
