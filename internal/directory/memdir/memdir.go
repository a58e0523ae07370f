// Package memdir is an in-memory Directory for tests and single-process dev
// runs without Redis.
package memdir

import (
	"context"
	"sync"

	"github.com/dkeye/Meet/internal/directory"
	"github.com/dkeye/Meet/internal/domain"
)

type Memory struct {
	mu       sync.RWMutex
	meetings map[domain.RoomID]domain.Meeting
	records  map[domain.RoomID]map[domain.ParticipantID]domain.Record
}

func New() *Memory {
	return &Memory{
		meetings: make(map[domain.RoomID]domain.Meeting),
		records:  make(map[domain.RoomID]map[domain.ParticipantID]domain.Record),
	}
}

func (m *Memory) UpsertParticipant(_ context.Context, roomID domain.RoomID, rec domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.records[roomID]
	if !ok {
		room = make(map[domain.ParticipantID]domain.Record)
		m.records[roomID] = room
	}
	if prev, ok := room[rec.ParticipantID]; ok && prev.JoinedAt != 0 {
		rec.JoinedAt = prev.JoinedAt
	}
	room[rec.ParticipantID] = rec
	return nil
}

func (m *Memory) MarkOffline(_ context.Context, roomID domain.RoomID, pid domain.ParticipantID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[roomID][pid]; ok {
		rec.IsOnline = false
		rec.ConnectionID = ""
		m.records[roomID][pid] = rec
	}
	return nil
}

func (m *Memory) ListOnlineParticipants(_ context.Context, roomID domain.RoomID) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Record, 0, len(m.records[roomID]))
	for _, rec := range m.records[roomID] {
		if rec.IsOnline {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) CreateMeeting(_ context.Context, meeting domain.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meetings[meeting.ID] = meeting
	return nil
}

func (m *Memory) GetMeeting(_ context.Context, roomID domain.RoomID) (domain.Meeting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meeting, ok := m.meetings[roomID]
	if !ok {
		return domain.Meeting{}, directory.ErrMeetingNotFound
	}
	return meeting, nil
}

func (m *Memory) ListParticipants(_ context.Context, roomID domain.RoomID) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Record, 0, len(m.records[roomID]))
	for _, rec := range m.records[roomID] {
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }
