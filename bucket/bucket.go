// Package bucket implements BucketCalculator (component C4): it
// derives a tenant's bucket column value from a record's date-like
// fields, and computes the year ranges the query engine fans out over.
package bucket

import (
	"strconv"

	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/tenant"
	"github.com/platformdata/dynengine/value"
)

// dateFieldNames are searched, in order, for a recognised date-like
// input when no explicit bucket value is supplied. The first key
// present in the record wins.
var dateFieldNames = []string{"period_date", "date", "timestamp", "report_date", "event_date"}

// Calculate returns the bucket value (currently always a year) derived
// from record, or (0, false) if either the config has no bucket column
// or no recognised date field is present. The latter is not an error:
// some tenants supply the bucket value directly, and the engine must
// not reject those records.
func Calculate(cfg *tenant.Config, record value.Record) (year int, ok bool, err error) {
	if !cfg.HasBucket() {
		return 0, false, nil
	}
	for _, field := range dateFieldNames {
		v, present := record.Get(field)
		if !present {
			continue
		}
		y, err := extractYear(v)
		if err != nil {
			return 0, false, err
		}
		return y, true, nil
	}
	return 0, false, nil
}

func extractYear(v value.Value) (int, error) {
	switch t := v.(type) {
	case value.Date:
		return t.Year, nil
	case value.Instant:
		return t.Time().In(defaultZone).Year(), nil
	case value.Int64:
		// Millisecond epoch integer.
		return epochMillisYear(int64(t)), nil
	case value.Int32:
		return epochMillisYear(int64(t)), nil
	case value.String:
		d, err := value.ParseDate(string(t))
		if err != nil {
			return 0, errors.Wrapf(errors.New(errors.ErrBucketType, "unparseable date string"), "parsing %q", string(t))
		}
		return d.Year, nil
	default:
		return 0, errors.New(errors.ErrBucketType, "unsupported date value type for bucket calculation")
	}
}

func epochMillisYear(ms int64) int {
	return epochToTime(ms).In(defaultZone).Year()
}

// YearRange returns the inclusive sequence of years [start.Year ..
// end.Year]. Requires start <= end, else a coded InvalidRange error.
func YearRange(start, end value.Date) ([]int, error) {
	if start.After(end) {
		return nil, errors.New(errors.ErrInvalidRange, "start date must not be after end date")
	}
	n := end.Year - start.Year + 1
	years := make([]int, n)
	for i := 0; i < n; i++ {
		years[i] = start.Year + i
	}
	return years, nil
}

// FormatYear renders a bucket year as a decimal string. The query
// engine binds bucket years as int32 and does not go through it.
func FormatYear(year int) string {
	return strconv.Itoa(year)
}
