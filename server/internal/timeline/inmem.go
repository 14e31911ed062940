package timeline

import (
	"context"
	"sync"

	"prebunk/server/internal/model"
)

// sessionLog 单个会话的事件日志与幂等索引。
type sessionLog struct {
	events    []model.Event
	nextSeq   int64
	byEventID map[string]int64
}

// InMemoryStore 基于内存的 Timeline 实现。
type InMemoryStore struct {
	mu   sync.RWMutex
	logs map[string]*sessionLog
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{logs: make(map[string]*sessionLog)}
}

// Append 追加事件并分配单调递增 seq。
// 副作用：回填 evt.Seq/SessionID；相同 EventID 直接返回已分配的 seq（幂等）。
func (s *InMemoryStore) Append(_ context.Context, sessionID string, evt *model.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lg := s.logs[sessionID]
	if lg == nil {
		lg = &sessionLog{nextSeq: 1, byEventID: make(map[string]int64)}
		s.logs[sessionID] = lg
	}

	if evt.EventID != "" {
		if seq, seen := lg.byEventID[evt.EventID]; seen {
			evt.Seq = seq
			return seq, nil
		}
	}

	seq := lg.nextSeq
	lg.nextSeq++

	evt.Seq = seq
	evt.SessionID = sessionID
	lg.events = append(lg.events, *evt)
	if evt.EventID != "" {
		lg.byEventID[evt.EventID] = seq
	}
	return seq, nil
}

// List 返回某个 session 的全部事件（切片副本，调用方可随意修改）。
func (s *InMemoryStore) List(_ context.Context, sessionID string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lg := s.logs[sessionID]
	if lg == nil {
		return nil, nil
	}
	out := make([]model.Event, len(lg.events))
	copy(out, lg.events)
	return out, nil
}
