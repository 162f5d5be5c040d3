package bucket

import "time"

// defaultZone is the system's default time zone, used to interpret
// instants and epoch-millisecond integers when deriving a bucket year,
// per §4.2 ("instant -> year in system default zone").
var defaultZone = time.Local

func epochToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
