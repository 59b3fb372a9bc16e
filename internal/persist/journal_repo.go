package persist

import (
	"context"
	"fmt"
	"time"
)

// Journal event names stored in battle_journal.event.
const (
	EventSpawn   = "spawn"
	EventShot    = "shot"
	EventDestroy = "destroy"
)

// JournalEntry is one row of the battle journal.
type JournalEntry struct {
	Tick     uint64
	Event    string // EventSpawn, EventShot, EventDestroy
	UnitID   uint64
	UnitKind string
	OtherID  uint64 // shooter for shots and kills, 0 otherwise
	X, Y     uint32
	At       time.Time
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteEntries writes a batch of journal entries in a single transaction.
func (r *JournalRepo) WriteEntries(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO battle_journal (tick, event, unit_id, unit_kind, other_id, x, y, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			int64(e.Tick), e.Event, int64(e.UnitID), e.UnitKind, int64(e.OtherID), int32(e.X), int32(e.Y), e.At,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	return nil
}

// CountSince returns how many entries were recorded at or after tick.
func (r *JournalRepo) CountSince(ctx context.Context, tick uint64) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM battle_journal WHERE tick >= $1`, int64(tick),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal count: %w", err)
	}
	return n, nil
}
