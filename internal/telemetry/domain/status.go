package telemetry

import "time"

// Status classifies an AUV by the age of its most recent vehicle-state point.
type Status string

const (
	StatusActive   Status = "active"
	StatusWarning  Status = "warning"
	StatusInactive Status = "inactive"
)

const (
	activeWindow  = 5 * time.Minute
	warningWindow = time.Hour
)

// ClassifyStatus derives the AUV status from the latest point timestamp.
// Boundaries are inclusive on the older side: an exactly 5-minute-old point
// is warning, an exactly 1-hour-old point is inactive. An AUV with no point
// at all is a not-found condition, not a status; callers handle that before
// classification.
func ClassifyStatus(now, lastUpdate time.Time) Status {
	age := now.Sub(lastUpdate)
	switch {
	case age < activeWindow:
		return StatusActive
	case age < warningWindow:
		return StatusWarning
	default:
		return StatusInactive
	}
}
