package aggregator

import "time"

const (
	// Missed hours older than this are not summarised after downtime.
	MaxCatchUp = 24 * time.Hour
	// Raw scans older than this many months are deleted once summarised.
	RetentionMonths = 3
)
