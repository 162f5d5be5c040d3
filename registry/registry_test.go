package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/tenant"
)

func mustConfig(t *testing.T) *tenant.Config {
	cfg, err := tenant.New("marketdata", "daily_numeric", []string{"tenant_id", "instrument_id"}, nil)
	require.NoError(t, err)
	return cfg
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	cfg := mustConfig(t)
	r.Register("IBM", "DAILY", "NUMERIC", cfg)

	got, err := r.Lookup("IBM", "DAILY", "NUMERIC")
	require.NoError(t, err)
	require.Same(t, cfg, got)
}

func TestLookupUnknownReturnsConfigNotFound(t *testing.T) {
	r := New()
	_, err := r.Lookup("IBM", "DAILY", "NUMERIC")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrConfigNotFound))
}

func TestRegisterOverwritesExisting(t *testing.T) {
	r := New()
	first := mustConfig(t)
	second, err := tenant.New("marketdata", "daily_string", []string{"tenant_id"}, nil)
	require.NoError(t, err)

	r.Register("IBM", "DAILY", "NUMERIC", first)
	r.Register("IBM", "DAILY", "NUMERIC", second)

	got, err := r.Lookup("IBM", "DAILY", "NUMERIC")
	require.NoError(t, err)
	require.Same(t, second, got)
}

func TestExistsAndUnregister(t *testing.T) {
	r := New()
	cfg := mustConfig(t)
	r.Register("IBM", "DAILY", "NUMERIC", cfg)
	require.True(t, r.Exists("IBM", "DAILY", "NUMERIC"))

	r.Unregister("IBM", "DAILY", "NUMERIC")
	require.False(t, r.Exists("IBM", "DAILY", "NUMERIC"))
}

func TestClear(t *testing.T) {
	r := New()
	r.Register("IBM", "DAILY", "NUMERIC", mustConfig(t))
	r.Register("AAPL", "DAILY", "NUMERIC", mustConfig(t))
	r.Clear()
	require.False(t, r.Exists("IBM", "DAILY", "NUMERIC"))
	require.False(t, r.Exists("AAPL", "DAILY", "NUMERIC"))
}

func TestConcurrentReadsDoNotRace(t *testing.T) {
	r := New()
	cfg := mustConfig(t)
	r.Register("IBM", "DAILY", "NUMERIC", cfg)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Lookup("IBM", "DAILY", "NUMERIC")
		}()
	}
	wg.Wait()
}
