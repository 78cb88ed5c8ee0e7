package auditdb

import (
	"database/sql"

	"github.com/google/uuid"
)

// Store writes audit rows for one process run.
type Store struct {
	db    *sql.DB
	runID uuid.UUID
}

type AccessScanRow struct {
	Timestamp int64  `db:"timestamp"`
	RunID     string `db:"run_id"`
	Token     string `db:"token"`
	Decision  string `db:"decision"`
	Command   string `db:"command"`
	FrameCRC  uint16 `db:"frame_crc"`
}

type LockEventRow struct {
	Timestamp    int64  `db:"timestamp"`
	RunID        string `db:"run_id"`
	State        string `db:"state"`
	Outcome      string `db:"outcome"`
	Indicator    string `db:"indicator"`
	Command      string `db:"command"`
	FrameCRC     uint16 `db:"frame_crc"`
	ReadErrors   uint64 `db:"read_errors"`
	EncodeErrors uint64 `db:"encode_errors"`
}

type AccessSummaryHourly struct {
	HourStart      int64  `db:"hour_start"`
	GrantedCount   uint32 `db:"granted_count"`
	DeniedCount    uint32 `db:"denied_count"`
	DistinctTokens uint32 `db:"distinct_tokens"`
}
