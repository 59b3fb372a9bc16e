package system

import (
	"context"
	"time"

	"github.com/tankwar/server/internal/core/event"
	coresys "github.com/tankwar/server/internal/core/system"
	"github.com/tankwar/server/internal/persist"
	"go.uber.org/zap"
)

// maxJournalBacklog bounds how many unwritten entries are kept while the
// database is unreachable; the oldest are dropped beyond it.
const maxJournalBacklog = 10000

// JournalWriter stores batches of journal entries.
type JournalWriter interface {
	WriteEntries(ctx context.Context, entries []persist.JournalEntry) error
}

// JournalSystem records spawns, shots and kills and writes them in batches
// every interval ticks. Entries carry the tick they were delivered in.
// Phase 5 (Persist).
type JournalSystem struct {
	writer   JournalWriter
	log      *zap.Logger
	interval int
	timeout  time.Duration

	tick      uint64
	tickCount int
	incoming  []persist.JournalEntry // delivered this tick, not yet stamped
	buf       []persist.JournalEntry
}

func NewJournalSystem(bus *event.Bus, writer JournalWriter, interval int, timeout time.Duration, log *zap.Logger) *JournalSystem {
	s := &JournalSystem{
		writer:   writer,
		log:      log,
		interval: max(interval, 1),
		timeout:  timeout,
	}
	event.Subscribe(bus, func(e event.UnitSpawned) {
		s.record(persist.EventSpawn, uint64(e.ID), e.Kind.String(), 0, e.X, e.Y)
	})
	event.Subscribe(bus, func(e event.ShotFired) {
		s.record(persist.EventShot, uint64(e.Bullet), "bullet", uint64(e.Tank), e.X, e.Y)
	})
	event.Subscribe(bus, func(e event.UnitDestroyed) {
		s.record(persist.EventDestroy, uint64(e.ID), e.Kind.String(), uint64(e.By), e.X, e.Y)
	})
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) record(kind string, id uint64, unitKind string, other uint64, x, y uint32) {
	s.incoming = append(s.incoming, persist.JournalEntry{
		Event:    kind,
		UnitID:   id,
		UnitKind: unitKind,
		OtherID:  other,
		X:        x,
		Y:        y,
	})
}

func (s *JournalSystem) Update(now time.Time) {
	for i := range s.incoming {
		s.incoming[i].Tick = s.tick
		s.incoming[i].At = now
	}
	s.buf = append(s.buf, s.incoming...)
	s.incoming = s.incoming[:0]
	s.tick++

	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Error("journal write failed", zap.Error(err), zap.Int("backlog", len(s.buf)))
	}
}

// Flush writes everything buffered so far. On failure the entries stay
// buffered for the next attempt, up to maxJournalBacklog.
func (s *JournalSystem) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	if err := s.writer.WriteEntries(ctx, s.buf); err != nil {
		if over := len(s.buf) - maxJournalBacklog; over > 0 {
			s.log.Warn("journal backlog full, dropping oldest entries", zap.Int("dropped", over))
			s.buf = append(s.buf[:0], s.buf[over:]...)
		}
		return err
	}
	s.buf = s.buf[:0]
	return nil
}

// Pending returns the number of entries not yet written.
func (s *JournalSystem) Pending() int { return len(s.buf) + len(s.incoming) }
