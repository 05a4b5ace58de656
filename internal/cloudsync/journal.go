package cloudsync

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const journalRange = "SyncLog!A:D"

// RowStore is the spreadsheet surface the journal needs.
type RowStore interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// JournalEntry is one logged sync.
type JournalEntry struct {
	SyncedAt time.Time `json:"syncedAt"`
	DeviceID string    `json:"deviceId"`
	Entities []string  `json:"entities"`
}

// SheetsJournal appends a row per successful sync to a spreadsheet.
type SheetsJournal struct {
	rows RowStore
}

// NewSheetsJournal wraps a row store.
func NewSheetsJournal(rows RowStore) *SheetsJournal {
	return &SheetsJournal{rows: rows}
}

// Record appends the sync to the journal.
func (j *SheetsJournal) Record(ctx context.Context, batch Batch, syncedAt time.Time) error {
	keys := batch.Keys()
	return j.rows.WriteRow(ctx, journalRange, []interface{}{
		syncedAt.UTC().Format(time.RFC3339),
		batch.DeviceID,
		strings.Join(keys, ","),
		len(keys),
	})
}

// History returns up to limit of the most recent entries, newest first.
func (j *SheetsJournal) History(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := j.rows.ReadRange(ctx, journalRange)
	if err != nil {
		return nil, fmt.Errorf("read sync journal: %w", err)
	}

	entries := make([]JournalEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 3 {
			continue
		}
		at, err := time.Parse(time.RFC3339, fmt.Sprint(row[0]))
		if err != nil {
			continue
		}
		var keys []string
		if raw := fmt.Sprint(row[2]); raw != "" {
			keys = strings.Split(raw, ",")
		}
		entries = append(entries, JournalEntry{SyncedAt: at, DeviceID: fmt.Sprint(row[1]), Entities: keys})
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}
