// Package memory provides an in-memory balance.Source (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/schedule"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	clients     map[generic.ClientID]balance.ClientProfile
	assignments map[generic.AssignmentID]schedule.Assignment
	holidays    []generic.HolidayRecord
}

var _ balance.Source = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		clients:     make(map[generic.ClientID]balance.ClientProfile),
		assignments: make(map[generic.AssignmentID]schedule.Assignment),
	}
}

// PutClient adds or replaces a client profile.
func (m *Memory) PutClient(p balance.ClientProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[p.UserID] = p
}

// PutAssignment adds or replaces an assignment.
func (m *Memory) PutAssignment(a schedule.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
}

// AddHoliday appends a holiday record.
func (m *Memory) AddHoliday(h generic.HolidayRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
}

func (m *Memory) ClientProfile(ctx context.Context, id generic.ClientID) (*balance.ClientProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) Holidays(ctx context.Context, year int, month time.Month) ([]generic.HolidayRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.HolidayRecord
	for _, h := range m.holidays {
		if h.Year == year && h.Month == int(month) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *Memory) ClientAssignments(ctx context.Context, id generic.ClientID, period generic.Period) ([]schedule.Assignment, error) {
	return m.filter(ctx, period, func(a schedule.Assignment) bool { return a.UserID == id })
}

func (m *Memory) WorkerClients(ctx context.Context, id generic.WorkerID, period generic.Period) ([]generic.ClientID, error) {
	as, err := m.filter(ctx, period, func(a schedule.Assignment) bool { return a.WorkerID == id })
	if err != nil {
		return nil, err
	}
	seen := make(map[generic.ClientID]bool)
	var out []generic.ClientID
	for _, a := range as {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			out = append(out, a.UserID)
		}
	}
	return out, nil
}

func (m *Memory) filter(ctx context.Context, period generic.Period, keep func(schedule.Assignment) bool) ([]schedule.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schedule.Assignment
	for _, a := range m.assignments {
		if keep(a) && a.Overlaps(period) {
			out = append(out, a)
		}
	}
	// Map iteration order is random; keep results deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
