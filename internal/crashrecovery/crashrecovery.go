// Package crashrecovery detects an unclean previous session via a project's
// .lock file and offers recovery from the most recent autosave.
package crashrecovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nuevaaudio/nueva-engine/internal/autosave"
	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
)

const (
	lockFilename    = ".lock"
	backupsDirName  = "backups"
	manifestFilename = "project.json"
)

// Result reports whether a prior session appears to have crashed and, if
// so, whether a usable autosave was found to recover from.
type Result struct {
	Needed             bool
	Success            bool
	Message            string
	RecoveryStatePath  string
}

// Check inspects projectDir for a stale .lock and, if present, looks for
// the most recent autosave to recover from.
func Check(projectDir string) (Result, error) {
	lockPath := filepath.Join(projectDir, lockFilename)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		return Result{Message: "No recovery needed. Project closed cleanly."}, nil
	}

	backupsDir := filepath.Join(projectDir, backupsDirName)
	autosaves, err := autosave.ListAutosaves(backupsDir)
	if err != nil {
		return Result{}, err
	}
	if len(autosaves) == 0 {
		return Result{
			Needed:  true,
			Message: "Warning: project may have crashed, but no autosave was found. The project state may be incomplete or corrupted.",
		}, nil
	}

	// ListAutosaves already returns newest-first by filename timestamp.
	latest := autosaves[0]
	return Result{
		Needed:            true,
		Success:           true,
		Message:           fmt.Sprintf("Recovery available from %s. Call ApplyRecovery to restore this state.", filepath.Base(latest)),
		RecoveryStatePath: latest,
	}, nil
}

// ApplyRecovery validates that the autosave at statePath parses as JSON,
// writes its bytes verbatim over project.json, and removes the stale lock.
func ApplyRecovery(projectDir, statePath string) error {
	data, err := os.ReadFile(statePath)
	if err != nil {
		return nerrors.New(nerrors.KindFileNotFound, err).Context("path", statePath).Build()
	}
	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nerrors.New(nerrors.KindHistoryCorrupt, err).Context("path", statePath).Build()
	}

	manifestPath := filepath.Join(projectDir, manifestFilename)
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return nerrors.New(nerrors.KindPermissionDenied, err).Context("path", manifestPath).Build()
	}

	lockPath := filepath.Join(projectDir, lockFilename)
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return nerrors.New(nerrors.KindGeneric, err).Context("path", lockPath).Build()
	}
	return nil
}
