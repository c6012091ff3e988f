package nueva

import (
	"path/filepath"

	"github.com/nuevaaudio/nueva-engine/internal/nconf"
	"github.com/nuevaaudio/nueva-engine/internal/undo"
)

func historyDirOf(projectPath string) string {
	return filepath.Join(projectPath, "history")
}

func loadUndoManager(projectPath string) (*undo.Manager, error) {
	mgr, err := undo.Load(historyDirOf(projectPath))
	if err != nil {
		return nil, err
	}
	if max := nconf.Get().Undo.MaxLevels; max > 0 {
		mgr.SetMaxUndoLevels(max)
	}
	return mgr, nil
}
