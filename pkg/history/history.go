package history

import (
	"sync"

	"osmeditor/pkg/store"
)

// Manager holds the undo and redo stacks. Each stack has its own
// exclusive lock; a command's Apply/Undo runs outside both locks,
// taking only whatever locks the store's own mutation primitives need.
type Manager struct {
	undoMu sync.Mutex
	undo   []Command

	redoMu sync.Mutex
	redo   []Command
}

// New returns an empty history manager.
func New() *Manager {
	return &Manager{}
}

// Execute applies cmd to s. On success it is pushed to the undo stack
// and the redo stack is cleared; a failed command is never pushed.
func (m *Manager) Execute(s *store.Store, cmd Command) Result {
	res := cmd.Apply(s)
	if res.Success {
		m.undoMu.Lock()
		m.undo = append(m.undo, cmd)
		m.undoMu.Unlock()

		m.redoMu.Lock()
		m.redo = m.redo[:0]
		m.redoMu.Unlock()
	}
	return res
}

// Undo pops the most recent undo-stack entry and calls its Undo; on
// success it is pushed to the redo stack.
func (m *Manager) Undo(s *store.Store) Result {
	m.undoMu.Lock()
	n := len(m.undo)
	if n == 0 {
		m.undoMu.Unlock()
		return Result{Message: "nothing to undo"}
	}
	cmd := m.undo[n-1]
	m.undo = m.undo[:n-1]
	m.undoMu.Unlock()

	res := cmd.Undo(s)
	if res.Success {
		m.redoMu.Lock()
		m.redo = append(m.redo, cmd)
		m.redoMu.Unlock()
	} else {
		m.undoMu.Lock()
		m.undo = append(m.undo, cmd)
		m.undoMu.Unlock()
	}
	return res
}

// Redo pops the most recent redo-stack entry and calls its Apply; on
// success it is pushed back onto the undo stack.
func (m *Manager) Redo(s *store.Store) Result {
	m.redoMu.Lock()
	n := len(m.redo)
	if n == 0 {
		m.redoMu.Unlock()
		return Result{Message: "nothing to redo"}
	}
	cmd := m.redo[n-1]
	m.redo = m.redo[:n-1]
	m.redoMu.Unlock()

	res := cmd.Apply(s)
	if res.Success {
		m.undoMu.Lock()
		m.undo = append(m.undo, cmd)
		m.undoMu.Unlock()
	} else {
		m.redoMu.Lock()
		m.redo = append(m.redo, cmd)
		m.redoMu.Unlock()
	}
	return res
}

// UndoCount and RedoCount report the current stack depths, for
// get_history_state.
func (m *Manager) UndoCount() int {
	m.undoMu.Lock()
	defer m.undoMu.Unlock()
	return len(m.undo)
}

func (m *Manager) RedoCount() int {
	m.redoMu.Lock()
	defer m.redoMu.Unlock()
	return len(m.redo)
}
