package bucket

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/tenant"
	"github.com/platformdata/dynengine/value"
)

func bucketedConfig(t *testing.T) *tenant.Config {
	cfg, err := tenant.NewWithBucket("marketdata", "daily_numeric",
		[]string{"tenant_id", "instrument_id", "period_year"}, "period_year", nil)
	require.NoError(t, err)
	return cfg
}

func unbucketedConfig(t *testing.T) *tenant.Config {
	cfg, err := tenant.New("marketdata", "lookup", []string{"tenant_id"}, nil)
	require.NoError(t, err)
	return cfg
}

func TestCalculateNoBucketColumn(t *testing.T) {
	cfg := unbucketedConfig(t)
	_, ok, err := Calculate(cfg, value.Record{"period_date": value.Date{Year: 2024, Month: 1, Day: 1}})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCalculateFromDate(t *testing.T) {
	cfg := bucketedConfig(t)
	year, ok, err := Calculate(cfg, value.Record{
		"period_date": value.Date{Year: 2023, Month: 6, Day: 15},
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2023, year)
}

func TestCalculateFromDateStringFallback(t *testing.T) {
	cfg := bucketedConfig(t)
	year, ok, err := Calculate(cfg, value.Record{
		"date": value.String("2022-03-04"),
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2022, year)
}

func TestCalculateNoRecognisedField(t *testing.T) {
	cfg := bucketedConfig(t)
	_, ok, err := Calculate(cfg, value.Record{"tenant_id": value.String("IBM")})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCalculateUnsupportedTypeErrors(t *testing.T) {
	cfg := bucketedConfig(t)
	_, _, err := Calculate(cfg, value.Record{"period_date": value.Null{}})
	// Null is absent per Record.Get, so this should fall through to
	// "no recognised field", not an error.
	require.NoError(t, err)

	_, _, err = Calculate(cfg, value.Record{"period_date": value.Record{}})
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrBucketType))
}

func TestCalculatePrefersFirstRecognisedField(t *testing.T) {
	cfg := bucketedConfig(t)
	year, ok, err := Calculate(cfg, value.Record{
		"period_date": value.Date{Year: 2020, Month: 1, Day: 1},
		"date":        value.Date{Year: 1999, Month: 1, Day: 1},
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2020, year)
}

func TestYearRangeSingleYear(t *testing.T) {
	years, err := YearRange(value.Date{Year: 2024, Month: 1, Day: 1}, value.Date{Year: 2024, Month: 12, Day: 31})
	require.NoError(t, err)
	require.Equal(t, []int{2024}, years)
}

func TestYearRangeMultipleYears(t *testing.T) {
	years, err := YearRange(value.Date{Year: 2021, Month: 1, Day: 1}, value.Date{Year: 2024, Month: 1, Day: 1})
	require.NoError(t, err)
	require.Equal(t, []int{2021, 2022, 2023, 2024}, years)
}

func TestYearRangeRejectsInverted(t *testing.T) {
	_, err := YearRange(value.Date{Year: 2024, Month: 1, Day: 1}, value.Date{Year: 2020, Month: 1, Day: 1})
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrInvalidRange))
}

func TestFormatYear(t *testing.T) {
	require.Equal(t, "2024", FormatYear(2024))
}
