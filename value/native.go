package value

import (
	"fmt"
	"strings"
	"time"
)

// dateColumnSuffixes match any column name ending in "date", which
// covers the date-named entries of bucket.dateFieldNames (but not
// "timestamp"): a driver-returned time.Time carries no marker
// distinguishing a CQL "date" column from a "timestamp" one, so
// FromNativeColumn falls back to the column's name.
var dateColumnSuffixes = []string{"_date", "date"}

func looksLikeDateColumn(col string) bool {
	lower := strings.ToLower(col)
	for _, suffix := range dateColumnSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// ToNative converts a scalar Value into the Go-native representation
// the store driver binds directly (string, int32, int64, float64, or
// time.Time; a DecimalValue binds as its decimal string). It rejects
// Record and Null, which callers must handle
// before reaching a bind site — a partition-key or bucket/date column
// can never legitimately hold either.
func ToNative(v Value) (interface{}, error) {
	switch t := v.(type) {
	case String:
		return string(t), nil
	case Int32:
		return int32(t), nil
	case Int64:
		return int64(t), nil
	case DecimalValue:
		return t.Decimal.String(), nil
	case Float64:
		return float64(t), nil
	case Date:
		return t.AsTime(), nil
	case Instant:
		return t.Time(), nil
	default:
		return nil, fmt.Errorf("value %T cannot be bound as a scalar statement parameter", v)
	}
}

// FromNative converts a value decoded off the wire by the store
// driver (from a non-UDT column) back into a Value. A time.Time always
// becomes Instant; callers that need to recover a Date column should
// use FromNativeColumn instead, since the driver hands back the same
// Go type for both CQL "date" and "timestamp" columns.
func FromNative(v interface{}) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case string:
		return String(t), nil
	case int32:
		return Int32(t), nil
	case int64:
		return Int64(t), nil
	case int:
		return Int64(int64(t)), nil
	case float64:
		return Float64(t), nil
	case time.Time:
		return Instant(t), nil
	default:
		return nil, fmt.Errorf("unsupported native value of type %T", v)
	}
}

// FromNativeColumn is FromNative plus the column-name heuristic that
// recovers Date for a column like "period_date": the store driver
// returns a plain time.Time for both CQL "date" and "timestamp"
// columns, so there is no way to tell them apart from the value alone.
func FromNativeColumn(col string, v interface{}) (Value, error) {
	if t, ok := v.(time.Time); ok && looksLikeDateColumn(col) {
		return NewDate(t), nil
	}
	return FromNative(v)
}
