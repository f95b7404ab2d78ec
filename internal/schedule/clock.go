package schedule

import (
	"fmt"
	"time"
)

// Broadcast times are always Korea Standard Time; the offset is fixed and
// independent of the runtime's local zone.
var kst = time.FixedZone("KST", 9*60*60)

// KST returns the fixed UTC+9 zone used for every emitted timestamp.
func KST() *time.Location { return kst }

// FormatDateTime renders a wall-clock value as an ISO-8601 timestamp with
// the explicit +09:00 offset.
func FormatDateTime(year, month, day, hour, minute int) string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:00+09:00", year, month, day, hour, minute)
}

// FormatDate renders a midnight KST timestamp for the given calendar date.
func FormatDate(year, month, day int) string {
	return FormatDateTime(year, month, day, 0, 0)
}
