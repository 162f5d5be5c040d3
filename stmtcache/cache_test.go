package stmtcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertGeneratesExpectedCQL(t *testing.T) {
	c, err := New(0, nil)
	require.NoError(t, err)

	st := c.Insert("marketdata", "daily_numeric", []string{"instrument_id", "period_year", "tenant_id"})
	require.Equal(t,
		"INSERT INTO marketdata.daily_numeric (instrument_id, period_year, tenant_id) VALUES (?, ?, ?)",
		st.CQL)
	require.Equal(t, []string{"instrument_id", "period_year", "tenant_id"}, st.Columns)
	require.False(t, st.HasBucket)
}

func TestInsertCachesByColumnOrder(t *testing.T) {
	c, err := New(0, nil)
	require.NoError(t, err)

	first := c.Insert("marketdata", "daily_numeric", []string{"a", "b"})
	second := c.Insert("marketdata", "daily_numeric", []string{"a", "b"})
	require.Same(t, first, second)

	third := c.Insert("marketdata", "daily_numeric", []string{"b", "a"})
	require.NotSame(t, first, third)
	require.Equal(t, 2, c.Len())
}

func TestSelectUnbucketed(t *testing.T) {
	c, err := New(0, nil)
	require.NoError(t, err)

	st := c.Select("marketdata", "lookup", []string{"tenant_id"}, "")
	require.Equal(t,
		"SELECT * FROM marketdata.lookup WHERE tenant_id = ? AND period_date >= ? AND period_date <= ?",
		st.CQL)
	require.False(t, st.HasBucket)
	require.Equal(t, "", st.BucketColumn)
}

func TestSelectBucketedAddsEqualityAndDateRange(t *testing.T) {
	c, err := New(0, nil)
	require.NoError(t, err)

	st := c.Select("marketdata", "daily_numeric", []string{"tenant_id", "instrument_id"}, "period_year")
	require.Equal(t,
		"SELECT * FROM marketdata.daily_numeric WHERE tenant_id = ? AND instrument_id = ? AND period_year = ? AND period_date >= ? AND period_date <= ?",
		st.CQL)
	require.True(t, st.HasBucket)
	require.Equal(t, "period_year", st.BucketColumn)
	require.Equal(t, []string{"tenant_id", "instrument_id"}, st.Columns)
}

func TestSelectCachesByFullKey(t *testing.T) {
	c, err := New(0, nil)
	require.NoError(t, err)

	a := c.Select("ks", "t", []string{"k"}, "y")
	b := c.Select("ks", "t", []string{"k"}, "y")
	require.Same(t, a, b)

	withoutBucket := c.Select("ks", "t", []string{"k"}, "")
	require.NotSame(t, a, withoutBucket)
}

func TestConcurrentInsertSameShapeSingleflights(t *testing.T) {
	c, err := New(0, nil)
	require.NoError(t, err)

	results := make(chan *Statement, 16)
	for i := 0; i < 16; i++ {
		go func() {
			results <- c.Insert("ks", "t", []string{"a", "b", "c"})
		}()
	}
	first := <-results
	for i := 1; i < 16; i++ {
		require.Same(t, first, <-results)
	}
	require.Equal(t, 1, c.Len())
}
