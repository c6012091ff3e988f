// Package undo implements action-based undo/redo over whole-project JSON
// snapshots: every mutation is recorded as before/after state, pushed onto
// a bounded undo stack, and mirrored into an append-only action log.
package undo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
)

// DefaultMaxUndoLevels bounds the undo stack before oldest entries are
// discarded and tracked for orphan collection.
const DefaultMaxUndoLevels = 50

const (
	undoStackFile = "undo_stack.json"
	redoStackFile = "redo_stack.json"
	actionLogFile = "action_log.json"
)

// ActionType tags what kind of mutation an UndoAction records.
type ActionType string

const (
	ActionDspChange   ActionType = "dsp_change"
	ActionAiProcessing ActionType = "ai_processing"
	ActionBake        ActionType = "bake"
	ActionImport      ActionType = "import"
	ActionReset       ActionType = "reset"
)

// Action is a single undoable operation with full before/after project
// snapshots, serialized as project.json-shaped JSON values.
type Action struct {
	ID           string          `json:"id"`
	Type         ActionType      `json:"action_type"`
	Description  string          `json:"description"`
	Timestamp    time.Time       `json:"timestamp"`
	StateBefore  json.RawMessage `json:"state_before"`
	StateAfter   json.RawMessage `json:"state_after"`
}

// NewAction builds an action with a fresh UUID and current timestamp.
func NewAction(actionType ActionType, description string, stateBefore, stateAfter json.RawMessage) Action {
	return Action{
		ID:          uuid.NewString(),
		Type:        actionType,
		Description: description,
		Timestamp:   time.Now().UTC(),
		StateBefore: stateBefore,
		StateAfter:  stateAfter,
	}
}

// Manager owns the undo/redo stacks and the append-only action log for one
// project's history directory.
type Manager struct {
	undoStack []Action
	redoStack []Action
	actionLog []Action
	discarded []string

	maxUndoLevels int
}

// New creates an empty manager with the given undo-depth limit.
func New(maxUndoLevels int) *Manager {
	if maxUndoLevels <= 0 {
		maxUndoLevels = DefaultMaxUndoLevels
	}
	return &Manager{maxUndoLevels: maxUndoLevels}
}

// Load reads undo_stack.json, redo_stack.json, and action_log.json from
// historyDir. Missing files are treated as empty.
func Load(historyDir string) (*Manager, error) {
	m := New(DefaultMaxUndoLevels)

	if err := readJSONFile(filepath.Join(historyDir, undoStackFile), &m.undoStack); err != nil {
		return nil, err
	}
	if err := readJSONFile(filepath.Join(historyDir, redoStackFile), &m.redoStack); err != nil {
		return nil, err
	}
	if err := readJSONFile(filepath.Join(historyDir, actionLogFile), &m.actionLog); err != nil {
		return nil, err
	}
	return m, nil
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nerrors.New(nerrors.KindGeneric, err).Context("path", path).Build()
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nerrors.New(nerrors.KindHistoryCorrupt, err).Context("path", path).Build()
	}
	return nil
}

// Save persists all three history documents, pretty-printed, to historyDir.
func (m *Manager) Save(historyDir string) error {
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Context("path", historyDir).Build()
	}
	if err := writeJSONFile(filepath.Join(historyDir, undoStackFile), m.undoStack); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(historyDir, redoStackFile), m.redoStack); err != nil {
		return err
	}
	return writeJSONFile(filepath.Join(historyDir, actionLogFile), m.actionLog)
}

func writeJSONFile(path string, v any) error {
	if v == nil {
		v = []Action{}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nerrors.New(nerrors.KindPermissionDenied, err).Context("path", path).Build()
	}
	return nil
}

// Push adds action to the undo stack and the action log, clears the redo
// stack (history has diverged), and trims to maxUndoLevels.
func (m *Manager) Push(action Action) {
	m.redoStack = nil
	m.actionLog = append(m.actionLog, action)
	m.undoStack = append(m.undoStack, action)
	m.trim()
}

func (m *Manager) trim() {
	for len(m.undoStack) > m.maxUndoLevels {
		m.discarded = append(m.discarded, m.undoStack[0].ID)
		m.undoStack = m.undoStack[1:]
	}
}

// Undo pops the most recent undo action, returning its state_before
// snapshot for the caller to apply, and pushes it onto the redo stack.
func (m *Manager) Undo() (Action, error) {
	if len(m.undoStack) == 0 {
		return Action{}, nerrors.New(nerrors.KindNothingToUndo, nerrors.NewStd("undo stack is empty")).Build()
	}
	action := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.redoStack = append(m.redoStack, action)
	return action, nil
}

// Redo pops the most recent redo action, returning its state_after
// snapshot for the caller to apply, and pushes it back onto the undo stack.
func (m *Manager) Redo() (Action, error) {
	if len(m.redoStack) == 0 {
		return Action{}, nerrors.New(nerrors.KindNothingToRedo, nerrors.NewStd("redo stack is empty")).Build()
	}
	action := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.undoStack = append(m.undoStack, action)
	return action, nil
}

// History returns the complete, chronological action log.
func (m *Manager) History() []Action { return m.actionLog }

// CanUndo reports whether there is an action to undo.
func (m *Manager) CanUndo() bool { return len(m.undoStack) > 0 }

// CanRedo reports whether there is an action to redo.
func (m *Manager) CanRedo() bool { return len(m.redoStack) > 0 }

// UndoCount is the number of actions currently undoable.
func (m *Manager) UndoCount() int { return len(m.undoStack) }

// RedoCount is the number of actions currently redoable.
func (m *Manager) RedoCount() int { return len(m.redoStack) }

// DiscardedActionIDs returns the ids of undo actions dropped by trimming or
// Clear, used by orphan collection to decide which L1 files are unreachable.
func (m *Manager) DiscardedActionIDs() []string { return m.discarded }

// MaxUndoLevels returns the current undo-depth limit.
func (m *Manager) MaxUndoLevels() int { return m.maxUndoLevels }

// SetMaxUndoLevels changes the undo-depth limit, trimming immediately if
// the stack now exceeds it.
func (m *Manager) SetMaxUndoLevels(levels int) {
	m.maxUndoLevels = levels
	m.trim()
}

// Clear empties both stacks, tracking every discarded action id. The
// action log is untouched: it is an append-only record independent of
// undo/redo navigation.
func (m *Manager) Clear() {
	for _, a := range m.undoStack {
		m.discarded = append(m.discarded, a.ID)
	}
	for _, a := range m.redoStack {
		m.discarded = append(m.discarded, a.ID)
	}
	m.undoStack = nil
	m.redoStack = nil
}
