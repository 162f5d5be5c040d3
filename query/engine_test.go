package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/ingest"
	"github.com/platformdata/dynengine/registry"
	"github.com/platformdata/dynengine/stmtcache"
	"github.com/platformdata/dynengine/store"
	"github.com/platformdata/dynengine/store/storetest"
	"github.com/platformdata/dynengine/tenant"
	"github.com/platformdata/dynengine/udt"
	"github.com/platformdata/dynengine/value"
)

func newTestEngines(t *testing.T) (*ingest.Engine, *Engine, *storetest.Session, *registry.Registry) {
	session := storetest.New()
	reg := registry.New()
	cache, err := stmtcache.New(0, nil)
	require.NoError(t, err)
	codec := udt.New(session, nil)
	return ingest.New(session, reg, cache, codec, 4, nil),
		New(session, reg, cache, codec, 4, nil),
		session, reg
}

func TestRetrieveRequiresDateRange(t *testing.T) {
	_, q, _, reg := newTestEngines(t)
	cfg, err := tenant.New("marketdata", "lookup", []string{"tenant_id"}, nil)
	require.NoError(t, err)
	reg.Register("IBM", "DAILY", "NUMERIC", cfg)

	_, err = q.Retrieve(context.Background(), "IBM", "DAILY", "NUMERIC", value.Record{})
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRetrieveUnbucketedSelectOne(t *testing.T) {
	ing, q, _, reg := newTestEngines(t)
	cfg, err := tenant.New("marketdata", "lookup", []string{"tenant_id"}, nil)
	require.NoError(t, err)
	reg.Register("IBM", "DAILY", "NUMERIC", cfg)

	_, err = ing.IngestBatch(context.Background(), ingest.Request{
		TenantID: "IBM", Periodicity: "DAILY", DataType: "NUMERIC",
		Data: []value.Record{{
			"tenant_id":   value.String("IBM"),
			"period_date": value.Date{Year: 2024, Month: 6, Day: 15},
			"label":       value.String("ok"),
		}},
	})
	require.NoError(t, err)

	rows, err := q.Retrieve(context.Background(), "IBM", "DAILY", "NUMERIC", value.Record{
		"start_date": value.Date{Year: 2024, Month: 1, Day: 1},
		"end_date":   value.Date{Year: 2024, Month: 12, Day: 31},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, ok := rows[0].Get("label")
	require.True(t, ok)
	require.Equal(t, value.String("ok"), v)
	pd, ok := rows[0].Get("period_date")
	require.True(t, ok)
	require.Equal(t, value.Date{Year: 2024, Month: 6, Day: 15}, pd)
}

func TestRetrieveUnbucketedExcludesRowsOutsideDateRange(t *testing.T) {
	ing, q, _, reg := newTestEngines(t)
	cfg, err := tenant.New("marketdata", "lookup", []string{"tenant_id"}, nil)
	require.NoError(t, err)
	reg.Register("IBM", "DAILY", "NUMERIC", cfg)

	_, err = ing.IngestBatch(context.Background(), ingest.Request{
		TenantID: "IBM", Periodicity: "DAILY", DataType: "NUMERIC",
		Data: []value.Record{{
			"tenant_id":   value.String("IBM"),
			"period_date": value.Date{Year: 2023, Month: 6, Day: 15},
			"label":       value.String("too early"),
		}},
	})
	require.NoError(t, err)

	rows, err := q.Retrieve(context.Background(), "IBM", "DAILY", "NUMERIC", value.Record{
		"start_date": value.Date{Year: 2024, Month: 1, Day: 1},
		"end_date":   value.Date{Year: 2024, Month: 12, Day: 31},
	})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRetrieveScatterGatherAcrossThreeYears(t *testing.T) {
	ing, q, _, reg := newTestEngines(t)
	cfg, err := tenant.NewWithBucket("marketdata", "daily_numeric",
		[]string{"tenant_id", "instrument_id", "period_year"}, "period_year", nil)
	require.NoError(t, err)
	reg.Register("IBM", "DAILY", "NUMERIC", cfg)

	for _, year := range []int{2021, 2022, 2023} {
		_, err := ing.IngestBatch(context.Background(), ingest.Request{
			TenantID: "IBM", Periodicity: "DAILY", DataType: "NUMERIC",
			Data: []value.Record{{
				"tenant_id": value.String("IBM"), "instrument_id": value.String("AAA"),
				"period_date": value.Date{Year: year, Month: 6, Day: 1},
				"value":       value.Float64(float64(year)),
			}},
		})
		require.NoError(t, err)
	}

	rows, err := q.Retrieve(context.Background(), "IBM", "DAILY", "NUMERIC", value.Record{
		"instrument_id": value.String("AAA"),
		"start_date":    value.Date{Year: 2021, Month: 1, Day: 1},
		"end_date":      value.Date{Year: 2023, Month: 12, Day: 31},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestRetrieveBucketedNarrowWindowExcludesRestOfYear(t *testing.T) {
	ing, q, _, reg := newTestEngines(t)
	cfg, err := tenant.NewWithBucket("marketdata", "daily_numeric",
		[]string{"tenant_id", "instrument_id", "period_year"}, "period_year", nil)
	require.NoError(t, err)
	reg.Register("IBM", "DAILY", "NUMERIC", cfg)

	for _, day := range []int{1, 5, 20} {
		_, err := ing.IngestBatch(context.Background(), ingest.Request{
			TenantID: "IBM", Periodicity: "DAILY", DataType: "NUMERIC",
			Data: []value.Record{{
				"tenant_id": value.String("IBM"), "instrument_id": value.String("AAA"),
				"period_date": value.Date{Year: 2024, Month: 6, Day: day},
			}},
		})
		require.NoError(t, err)
	}

	rows, err := q.Retrieve(context.Background(), "IBM", "DAILY", "NUMERIC", value.Record{
		"instrument_id": value.String("AAA"),
		"start_date":    value.Date{Year: 2024, Month: 6, Day: 1},
		"end_date":      value.Date{Year: 2024, Month: 6, Day: 5},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestRetrieveScatterGatherFailurePropagates(t *testing.T) {
	ing, q, session, reg := newTestEngines(t)
	cfg, err := tenant.NewWithBucket("marketdata", "daily_numeric",
		[]string{"tenant_id", "period_year"}, "period_year", nil)
	require.NoError(t, err)
	reg.Register("IBM", "DAILY", "NUMERIC", cfg)

	_, err = ing.IngestBatch(context.Background(), ingest.Request{
		TenantID: "IBM", Periodicity: "DAILY", DataType: "NUMERIC",
		Data: []value.Record{{
			"tenant_id": value.String("IBM"), "period_date": value.Date{Year: 2022, Month: 1, Day: 1},
		}},
	})
	require.NoError(t, err)

	session.FailSelectWhen(func(stmt store.BoundStatement) bool {
		for _, arg := range stmt.Args {
			if y, ok := arg.(int32); ok && y == 2023 {
				return true
			}
		}
		return false
	})

	_, err = q.Retrieve(context.Background(), "IBM", "DAILY", "NUMERIC", value.Record{
		"start_date": value.Date{Year: 2022, Month: 1, Day: 1},
		"end_date":   value.Date{Year: 2023, Month: 12, Day: 31},
	})
	require.Error(t, err)
	var sgf *errors.ScatterGatherFailure
	require.True(t, errors.As(err, &sgf))
	require.Contains(t, sgf.FailedBuckets, 2023)
}

func TestRetrieveDecodesUdtColumn(t *testing.T) {
	ing, q, session, reg := newTestEngines(t)
	cfg, err := tenant.New("marketdata", "with_measurement", []string{"tenant_id"}, []string{"measurement"})
	require.NoError(t, err)
	reg.Register("IBM", "DAILY", "NUMERIC", cfg)
	session.RegisterUserType("marketdata", "measurement", []string{"value"})

	_, err = ing.IngestBatch(context.Background(), ingest.Request{
		TenantID: "IBM", Periodicity: "DAILY", DataType: "NUMERIC",
		Data: []value.Record{{
			"tenant_id":   value.String("IBM"),
			"period_date": value.Date{Year: 2024, Month: 6, Day: 15},
			"measurement": value.Record{"value": value.Float64(4.5)},
		}},
	})
	require.NoError(t, err)

	rows, err := q.Retrieve(context.Background(), "IBM", "DAILY", "NUMERIC", value.Record{
		"start_date": value.Date{Year: 2024, Month: 1, Day: 1},
		"end_date":   value.Date{Year: 2024, Month: 12, Day: 31},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	m, ok := rows[0].Get("measurement")
	require.True(t, ok)
	rec, ok := m.(value.Record)
	require.True(t, ok)
	v, ok := rec.Get("value")
	require.True(t, ok)
	dv, ok := v.(value.DecimalValue)
	require.True(t, ok)
	require.Equal(t, "4.5", dv.Decimal.String())
}
