package storetest

import "time"

func equalScalar(a, b interface{}) bool {
	return compareScalar(a, b) == 0
}

// compareScalar orders two bound-argument values of the Go native
// types string, int32, int64, int and time.Time. Values of any other
// type (float64 included) compare as equal. It is only ever asked to
// compare like with like, since
// both sides originate from the same column across different rows or
// from a bind parameter built against that column's declared type.
func compareScalar(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case int32:
		return compareInt64(int64(av), toInt64(b))
	case int64:
		return compareInt64(av, toInt64(b))
	case int:
		return compareInt64(int64(av), toInt64(b))
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0
		}
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int32:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
