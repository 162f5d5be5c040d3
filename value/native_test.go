package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromNativeColumnRecoversDateFromColumnName(t *testing.T) {
	native := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	v, err := FromNativeColumn("period_date", native)
	require.NoError(t, err)
	require.Equal(t, Date{Year: 2024, Month: 6, Day: 15}, v)
}

func TestFromNativeColumnDefaultsToInstant(t *testing.T) {
	native := time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)
	v, err := FromNativeColumn("created_at", native)
	require.NoError(t, err)
	require.Equal(t, Instant(native), v)
}

func TestFromNativeColumnPassesThroughNonTimeValues(t *testing.T) {
	v, err := FromNativeColumn("tenant_id", "IBM")
	require.NoError(t, err)
	require.Equal(t, String("IBM"), v)
}
