// Package autosave provides interval-driven JSON snapshots of project state
// to the backups directory, with rotation so the backlog stays bounded.
package autosave

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nuevaaudio/nueva-engine/internal/nconf"
	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
	"github.com/nuevaaudio/nueva-engine/internal/resource"
)

const (
	defaultIntervalSeconds = 60
	defaultMaxAutosaves    = 10
	autosavePrefix         = "autosave_"
	autosaveExtension      = ".json"
	timestampLayout        = "20060102_150405"
)

// ProjectState is the minimal view autosave needs of a live project: its
// current JSON and a processing flag, so should_autosave never races a
// process call per the single-threaded-per-project ordering guarantee.
type ProjectState interface {
	IsProcessing() bool
	HasUnsavedChanges() bool
	MarshalJSON() ([]byte, error)
	BackupsDir() string
}

// Manager schedules and rotates autosaves for one project session.
type Manager struct {
	IntervalSeconds int
	MaxAutosaves    int
	lastSaveTime    time.Time
}

// New creates a Manager using the configured interval and retention
// (internal/nconf), falling back to the 60s/10-file defaults if unset.
func New() *Manager {
	cfg := nconf.Get().Autosave
	interval, max := cfg.IntervalSeconds, cfg.MaxAutosaves
	if interval <= 0 {
		interval = defaultIntervalSeconds
	}
	if max <= 0 {
		max = defaultMaxAutosaves
	}
	return &Manager{IntervalSeconds: interval, MaxAutosaves: max}
}

// WithInterval creates a Manager with custom interval and retention.
func WithInterval(intervalSeconds, maxAutosaves int) *Manager {
	return &Manager{IntervalSeconds: intervalSeconds, MaxAutosaves: maxAutosaves}
}

// ShouldAutosave reports whether an autosave is due: the project must not
// be mid-process, must have unsaved changes, and either have never saved
// or have exceeded the configured interval since its last save.
func (m *Manager) ShouldAutosave(p ProjectState) bool {
	if p.IsProcessing() {
		return false
	}
	if !p.HasUnsavedChanges() {
		return false
	}
	if m.lastSaveTime.IsZero() {
		return true
	}
	return time.Since(m.lastSaveTime) >= time.Duration(m.IntervalSeconds)*time.Second
}

// Autosave writes a timestamped JSON snapshot of the project to its
// backups directory, records the save time, and rotates old snapshots.
func (m *Manager) Autosave(p ProjectState) (string, error) {
	backupsDir := p.BackupsDir()
	if err := os.MkdirAll(backupsDir, 0o755); err != nil {
		return "", nerrors.New(nerrors.KindGeneric, err).Context("path", backupsDir).Build()
	}

	if err := resource.CheckDiskSpace(backupsDir, resource.MinDiskSpaceAutosaveMB); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	filename := autosavePrefix + now.Format(timestampLayout) + autosaveExtension
	path := filepath.Join(backupsDir, filename)

	content, err := p.MarshalJSON()
	if err != nil {
		return "", nerrors.New(nerrors.KindGeneric, err).Build()
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", nerrors.New(nerrors.KindGeneric, err).Context("path", path).Build()
	}

	m.lastSaveTime = now

	if err := m.RotateAutosaves(backupsDir); err != nil {
		return path, err
	}
	return path, nil
}

// RotateAutosaves deletes the oldest autosave files once the count exceeds
// MaxAutosaves, keeping the most recent ones.
func (m *Manager) RotateAutosaves(backupsDir string) error {
	autosaves, err := ListAutosaves(backupsDir)
	if err != nil {
		return err
	}
	for len(autosaves) > m.MaxAutosaves {
		oldest := autosaves[len(autosaves)-1]
		if err := os.Remove(oldest); err != nil {
			return nerrors.New(nerrors.KindGeneric, err).Context("path", oldest).Build()
		}
		autosaves = autosaves[:len(autosaves)-1]
	}
	return nil
}

// ListAutosaves returns every autosave_*.json file in backupsDir, sorted
// newest first by filename (which is chronological by construction).
// Files that don't match the exact prefix+extension pattern are ignored.
func ListAutosaves(backupsDir string) ([]string, error) {
	entries, err := os.ReadDir(backupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, nerrors.New(nerrors.KindGeneric, err).Context("path", backupsDir).Build()
	}

	var autosaves []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, autosavePrefix) || !strings.HasSuffix(name, autosaveExtension) {
			continue
		}
		stem := strings.TrimSuffix(strings.TrimPrefix(name, autosavePrefix), autosaveExtension)
		if _, err := time.Parse(timestampLayout, stem); err != nil {
			continue
		}
		autosaves = append(autosaves, filepath.Join(backupsDir, name))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(autosaves)))
	return autosaves, nil
}

// LatestAutosave returns the most recent autosave file path, or "" if none.
func LatestAutosave(backupsDir string) (string, error) {
	autosaves, err := ListAutosaves(backupsDir)
	if err != nil {
		return "", err
	}
	if len(autosaves) == 0 {
		return "", nil
	}
	return autosaves[0], nil
}
