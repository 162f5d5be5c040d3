package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecimalStringRoundTrip(t *testing.T) {
	cases := []string{"0", "1", "-1", "1.50", "-3.25", "0.001", "100"}
	for _, s := range cases {
		d, err := NewDecimalFromString(s)
		require.NoError(t, err)
		// String() always renders with the literal's own scale, so
		// "1.50" round-trips to "1.50", not "1.5".
		require.Equal(t, s, d.String())
	}
}

func TestDecimalEqualIgnoresScale(t *testing.T) {
	a, err := NewDecimalFromString("1.5")
	require.NoError(t, err)
	b, err := NewDecimalFromString("1.50")
	require.NoError(t, err)
	require.True(t, a.Equal(b))
	require.Equal(t, 0, a.Cmp(b))
}

func TestDecimalCmpOrdersAcrossScale(t *testing.T) {
	small, err := NewDecimalFromString("1.2")
	require.NoError(t, err)
	big, err := NewDecimalFromString("1.25")
	require.NoError(t, err)
	require.Equal(t, -1, small.Cmp(big))
	require.Equal(t, 1, big.Cmp(small))
}

func TestNewDecimalFromInt64Exact(t *testing.T) {
	d := NewDecimalFromInt64(42)
	require.Equal(t, "42", d.String())
}

func TestNewDecimalFromFloat64(t *testing.T) {
	d, err := NewDecimalFromFloat64(3.5)
	require.NoError(t, err)
	require.Equal(t, "3.5", d.String())
}

func TestNewDecimalFromFloat64RejectsNonFinite(t *testing.T) {
	_, err := NewDecimalFromFloat64(math.Inf(1))
	require.Error(t, err)
	_, err = NewDecimalFromFloat64(math.NaN())
	require.Error(t, err)
}

func TestDecimalFloat64(t *testing.T) {
	d, err := NewDecimalFromString("2.5")
	require.NoError(t, err)
	require.InDelta(t, 2.5, d.Float64(), 1e-9)
}
