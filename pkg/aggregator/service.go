package aggregator

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/auditdb"
)

// roundToHourStart returns the Unix timestamp of the start of the hour for the given time
func roundToHourStart(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Unix()
}

// getHourEnd returns the Unix timestamp of the last second of the hour (next hour start - 1)
func getHourEnd(hourStart int64) int64 {
	return time.Unix(hourStart, 0).Add(time.Hour).Unix() - 1
}

// aggregateAccessHourly summarises the scans of one hour. Hours without scans
// get no row.
func aggregateAccessHourly(db *sql.DB, hourStart int64) error {
	hourEnd := getHourEnd(hourStart)

	query := `
		SELECT
			COALESCE(SUM(CASE WHEN decision = 'true' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN decision = 'false' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT token),
			COUNT(*)
		FROM access_scans
		WHERE timestamp >= ? AND timestamp <= ?
	`

	var summary auditdb.AccessSummaryHourly
	var total uint32
	err := db.QueryRow(query, hourStart, hourEnd).Scan(
		&summary.GrantedCount,
		&summary.DeniedCount,
		&summary.DistinctTokens,
		&total,
	)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	_, err = db.Exec(`
		INSERT OR REPLACE INTO access_summary_hourly
		(hour_start, granted_count, denied_count, distinct_tokens)
		VALUES (?, ?, ?, ?)
	`, hourStart, summary.GrantedCount, summary.DeniedCount, summary.DistinctTokens)
	return err
}

// firstPendingHour is the earliest hour that still needs a summary, bounded
// by MaxCatchUp.
func firstPendingHour(db *sql.DB, now time.Time) (int64, error) {
	floor := roundToHourStart(now.Add(-MaxCatchUp))

	var last sql.NullInt64
	if err := db.QueryRow("SELECT MAX(hour_start) FROM access_summary_hourly").Scan(&last); err != nil {
		return 0, err
	}
	if !last.Valid || last.Int64 < floor {
		return floor, nil
	}
	// The last summarised hour is recomputed in case scans arrived late.
	return last.Int64, nil
}

// cleanupOldData removes raw scans older than the retention period if we have
// summarised up to that point.
func cleanupOldData(db *sql.DB, now time.Time) error {
	cutoff := now.UTC().AddDate(0, -RetentionMonths, 0)
	cutoffTimestamp := cutoff.Unix()

	var lastSummaryHour sql.NullInt64
	if err := db.QueryRow("SELECT MAX(hour_start) FROM access_summary_hourly").Scan(&lastSummaryHour); err != nil {
		return err
	}
	if !lastSummaryHour.Valid || lastSummaryHour.Int64 < cutoffTimestamp {
		return nil
	}

	res, err := db.Exec("DELETE FROM access_scans WHERE timestamp < ?", cutoffTimestamp)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Info().Int64("rows", n).Time("cutoff", cutoff).Msg("Cleaned up old access scans")
	}
	return nil
}

// AggregateAndCleanup summarises every finished hour not yet summarised and
// prunes old raw scans.
func AggregateAndCleanup(store *auditdb.Store, now time.Time) error {
	db := store.DB()
	currentHour := roundToHourStart(now)

	start, err := firstPendingHour(db, now)
	if err != nil {
		log.Error().Err(err).Msg("Error finding pending hours")
		return err
	}

	hours := 0
	for hourStart := start; hourStart < currentHour; hourStart += int64(time.Hour / time.Second) {
		if err := aggregateAccessHourly(db, hourStart); err != nil {
			log.Error().Err(err).Time("hour", time.Unix(hourStart, 0).UTC()).Msg("Error aggregating access scans")
			return err
		}
		hours++
	}

	if err := cleanupOldData(db, now); err != nil {
		log.Error().Err(err).Msg("Error cleaning up old data")
		return err
	}

	log.Debug().Int("hours", hours).Msg("Aggregation and cleanup completed")
	return nil
}
