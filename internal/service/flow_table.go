package service

import (
	"sync"
	"time"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

// flowTable - состояния пользователей и признак "событие в обработке".
// Мьютекс держится только на время обращения к картам, внешние вызовы
// выполняются без него.
type flowTable struct {
	mu     sync.Mutex
	states map[int64]*model.FlowState
	busy   map[int64]struct{}
}

func newFlowTable() *flowTable {
	return &flowTable{
		states: make(map[int64]*model.FlowState),
		busy:   make(map[int64]struct{}),
	}
}

// acquire занимает пользователя. false - по нему уже обрабатывается событие.
func (t *flowTable) acquire(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.busy[userID]; ok {
		return false
	}
	t.busy[userID] = struct{}{}
	return true
}

func (t *flowTable) release(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.busy, userID)
}

// get возвращает копию состояния, изменения вступают в силу после put
func (t *flowTable) get(userID int64) *model.FlowState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[userID]
	if !ok {
		return nil
	}
	return state.Clone()
}

func (t *flowTable) put(state *model.FlowState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[state.UserID] = state
}

func (t *flowTable) delete(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, userID)
}

func (t *flowTable) exists(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.states[userID]
	return ok
}

func (t *flowTable) isBusy(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.busy[userID]
	return ok
}

func (t *flowTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

// sweep удаляет состояния, не менявшиеся с cutoff. Занятые пользователи пропускаются.
func (t *flowTable) sweep(cutoff time.Time) []*model.FlowState {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []*model.FlowState
	for userID, state := range t.states {
		if _, busy := t.busy[userID]; busy {
			continue
		}
		if state.UpdatedAt.Before(cutoff) {
			evicted = append(evicted, state)
			delete(t.states, userID)
		}
	}
	return evicted
}
