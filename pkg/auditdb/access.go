package auditdb

import (
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// RecordScan stores one access poller decision.
func (s *Store) RecordScan(scan types.AccessScan) error {
	return s.InsertAccessScan(&AccessScanRow{
		Timestamp: scan.Timestamp.Unix(),
		RunID:     s.runID.String(),
		Token:     string(scan.Token),
		Decision:  scan.Decision.String(),
		Command:   string(scan.Command),
		FrameCRC:  scan.FrameCRC,
	})
}

// RecordLockEvent stores one controller snapshot.
func (s *Store) RecordLockEvent(ev types.LockEvent) error {
	return s.InsertLockEvent(&LockEventRow{
		Timestamp:    ev.Timestamp.Unix(),
		RunID:        s.runID.String(),
		State:        ev.State.String(),
		Outcome:      ev.Outcome,
		Indicator:    ev.Indicator.String(),
		Command:      string(ev.Command),
		FrameCRC:     ev.FrameCRC,
		ReadErrors:   ev.Counters.ReadErrors,
		EncodeErrors: ev.Counters.EncodeErrors,
	})
}

func (s *Store) InsertAccessScan(row *AccessScanRow) error {
	_, err := s.db.Exec(
		"INSERT INTO access_scans (timestamp, run_id, token, decision, command, frame_crc) "+
			"VALUES (?, ?, ?, ?, ?, ?)",
		row.Timestamp,
		row.RunID,
		row.Token,
		row.Decision,
		row.Command,
		row.FrameCRC,
	)
	return err
}

func (s *Store) InsertLockEvent(row *LockEventRow) error {
	_, err := s.db.Exec(
		"INSERT INTO lock_events "+
			"(timestamp, run_id, state, outcome, indicator, command, frame_crc, read_errors, encode_errors) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		row.Timestamp,
		row.RunID,
		row.State,
		row.Outcome,
		row.Indicator,
		row.Command,
		row.FrameCRC,
		row.ReadErrors,
		row.EncodeErrors,
	)
	return err
}
