package partitionkey

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platformdata/dynengine/value"
)

func TestOfEqualValuesProduceEqualKeys(t *testing.T) {
	a, err := Of([]value.Value{value.String("IBM"), value.Int32(2024)})
	require.NoError(t, err)
	b, err := Of([]value.Value{value.String("IBM"), value.Int32(2024)})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestOfDifferentValuesProduceDifferentKeys(t *testing.T) {
	a, err := Of([]value.Value{value.String("IBM"), value.Int32(2024)})
	require.NoError(t, err)
	b, err := Of([]value.Value{value.String("AAPL"), value.Int32(2024)})
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOfRejectsNull(t *testing.T) {
	_, err := Of([]value.Value{value.Null{}})
	require.Error(t, err)
}

func TestOfRejectsNestedRecord(t *testing.T) {
	_, err := Of([]value.Value{value.Record{"x": value.Int32(1)}})
	require.Error(t, err)
}

func TestKeyUsableAsMapKey(t *testing.T) {
	k1, err := Of([]value.Value{value.String("tenant-a")})
	require.NoError(t, err)
	k2, err := Of([]value.Value{value.String("tenant-a")})
	require.NoError(t, err)

	m := map[Key]int{}
	m[k1] = 1
	m[k2]++
	require.Equal(t, 2, m[k1])
}

func TestKeyStringIncludesParts(t *testing.T) {
	k, err := Of([]value.Value{value.String("IBM"), value.Int32(2024)})
	require.NoError(t, err)
	require.Contains(t, k.String(), "IBM")
}
