package nueva

import (
	"fmt"

	"github.com/nuevaaudio/nueva-engine/internal/crashrecovery"
	"github.com/nuevaaudio/nueva-engine/internal/layers"
)

// openProject loads a project, running the crash-recovery scan first.
// If a prior session's .lock is found, the newest autosave is applied and
// the project reloaded, and a recovery message is returned alongside it.
func openProject(path string) (*layers.Project, string, error) {
	result, err := crashrecovery.Check(path)
	if err != nil {
		return nil, "", err
	}

	p, err := layers.LoadProject(path)
	if err != nil {
		return nil, "", err
	}

	var msg string
	if result.Needed {
		msg = fmt.Sprintf("recovered from unclean shutdown: %s", result.Message)
		if result.Success && result.RecoveryStatePath != "" {
			if err := crashrecovery.ApplyRecovery(path, result.RecoveryStatePath); err != nil {
				return nil, "", err
			}
			p, err = layers.LoadProject(path)
			if err != nil {
				return nil, "", err
			}
		}
	}

	return p, msg, nil
}
