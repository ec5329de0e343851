package departures

import "time"

// OperatorZone is the operator's local time (AWST, UTC+8, no daylight saving).
// A fixed zone keeps the service independent of the host's tz database.
var OperatorZone = time.FixedZone("AWST", 8*60*60)

// Clock supplies the current time. gcache.Clock satisfies it, so the session
// cache and the pipeline can share one fake clock in tests.
type Clock interface {
	Now() time.Time
}

// OperatorClock reports the current time in OperatorZone
type OperatorClock struct{}

func (OperatorClock) Now() time.Time {
	return time.Now().In(OperatorZone)
}
