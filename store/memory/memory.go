// Package memory provides an in-memory ingest.EventStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/ingest"
	"github.com/kollel/stipend-engine/stipend"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	events   map[generic.StudentID][]stipend.AttendanceEvent
	seen     map[key]bool
	names    map[generic.StudentID][2]string
	holidays map[generic.Date]string
}

// key identifies an event the way the SQL store's unique index does.
type key struct {
	StudentID generic.StudentID
	Date      generic.Date
	Entry     generic.TimeOfDay
	Exit      generic.TimeOfDay
}

var _ ingest.EventStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		events:   make(map[generic.StudentID][]stipend.AttendanceEvent),
		seen:     make(map[key]bool),
		names:    make(map[generic.StudentID][2]string),
		holidays: make(map[generic.Date]string),
	}
}

// SaveEvents adds events, skipping ones already stored.
func (m *Memory) SaveEvents(_ context.Context, events []stipend.AttendanceEvent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, ev := range events {
		if ev.StudentID == "" || ev.Date.IsZero() {
			continue
		}
		m.rememberName(ev)
		k := key{StudentID: ev.StudentID, Date: ev.Date, Entry: ev.Entry, Exit: ev.Exit}
		if m.seen[k] {
			continue
		}
		m.seen[k] = true
		m.insertLocked(ev)
		inserted++
	}
	return inserted, nil
}

func (m *Memory) rememberName(ev stipend.AttendanceEvent) {
	n := m.names[ev.StudentID]
	if ev.LastName != "" {
		n[0] = ev.LastName
	}
	if ev.FirstName != "" {
		n[1] = ev.FirstName
	}
	m.names[ev.StudentID] = n
}

// insertLocked keeps each student's events ordered by date, then entry.
func (m *Memory) insertLocked(ev stipend.AttendanceEvent) {
	evs := m.events[ev.StudentID]
	i := sort.Search(len(evs), func(i int) bool {
		if evs[i].Date != ev.Date {
			return evs[i].Date.After(ev.Date)
		}
		return evs[i].Entry.SecondsOfDay() > ev.Entry.SecondsOfDay()
	})
	evs = append(evs, stipend.AttendanceEvent{})
	copy(evs[i+1:], evs[i:])
	evs[i] = ev
	m.events[ev.StudentID] = evs
}

// DeleteEvents removes the events dated within period.
func (m *Memory) DeleteEvents(_ context.Context, period generic.Period) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, evs := range m.events {
		kept := evs[:0]
		for _, ev := range evs {
			if period.Contains(ev.Date) {
				delete(m.seen, key{StudentID: ev.StudentID, Date: ev.Date, Entry: ev.Entry, Exit: ev.Exit})
				removed++
				continue
			}
			kept = append(kept, ev)
		}
		m.events[id] = kept
	}
	return removed, nil
}

// Source returns a table source over the events dated within period.
func (m *Memory) Source(period generic.Period) ingest.Source {
	return sourceFunc(func(context.Context) (*ingest.Table, error) {
		return m.table(period), nil
	})
}

type sourceFunc func(ctx context.Context) (*ingest.Table, error)

func (f sourceFunc) ReadTable(ctx context.Context) (*ingest.Table, error) { return f(ctx) }

func (m *Memory) table(period generic.Period) *ingest.Table {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]generic.StudentID, 0, len(m.events))
	for id := range m.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	t := &ingest.Table{Header: append([]string(nil), ingest.EventHeader...)}
	for _, id := range ids {
		n := m.names[id]
		for _, ev := range m.events[id] {
			if !period.Contains(ev.Date) {
				continue
			}
			ev.LastName, ev.FirstName = n[0], n[1]
			t.Rows = append(t.Rows, ingest.EventRow(ev))
		}
	}
	return t
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.Date] = h.Name
	return nil
}

func (m *Memory) Holidays(_ context.Context, period generic.Period) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.Holiday
	for d, name := range m.holidays {
		if period.Contains(d) {
			out = append(out, generic.Holiday{Date: d, Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
