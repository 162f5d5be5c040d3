// Package partitionkey implements the value-equal composite key used
// to group a heterogeneous ingest batch into one logged batch per
// physical partition (component C2).
package partitionkey

import (
	"fmt"
	"strings"

	"github.com/platformdata/dynengine/value"
)

// Key is an ordered sequence of scalar values positionally
// corresponding to a tenant.Config's PartitionKeys. It is comparable
// (backed by a string encoding) so it can be used directly as a Go map
// key, and is never persisted — it exists only for in-process grouping.
type Key struct {
	encoded string
}

// Of builds a Key from the ordered partition-key values of a record.
// Every element must be a scalar Value (String, Int32, Int64,
// DecimalValue, Float64, Date, or Instant); Of returns an error for any
// Null or Record element, since a partition key cannot contain a
// missing or nested value.
func Of(values []value.Value) (Key, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		s, err := scalarString(v)
		if err != nil {
			return Key{}, fmt.Errorf("partition key element %d: %w", i, err)
		}
		parts[i] = s
	}
	return Key{encoded: strings.Join(parts, "\x1f")}, nil
}

func scalarString(v value.Value) (string, error) {
	switch t := v.(type) {
	case nil, value.Null:
		return "", fmt.Errorf("partition key element is null")
	case value.Record:
		return "", fmt.Errorf("partition key element is a nested record")
	case value.String:
		return "s:" + string(t), nil
	case value.Int32:
		return fmt.Sprintf("i32:%d", t), nil
	case value.Int64:
		return fmt.Sprintf("i64:%d", t), nil
	case value.DecimalValue:
		return "d:" + t.Decimal.String(), nil
	case value.Float64:
		return fmt.Sprintf("f:%v", float64(t)), nil
	case value.Date:
		return "date:" + t.String(), nil
	case value.Instant:
		return "ts:" + t.Time().UTC().Format("2006-01-02T15:04:05.000000000Z"), nil
	default:
		return "", fmt.Errorf("unhandled value variant %T", v)
	}
}

// String renders the key for diagnostics (PartialBatchFailure detail,
// log lines); it is not guaranteed stable across releases.
func (k Key) String() string {
	return "(" + strings.Join(strings.Split(k.encoded, "\x1f"), ", ") + ")"
}
