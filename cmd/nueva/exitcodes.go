package nueva

import "github.com/nuevaaudio/nueva-engine/internal/nerrors"

// exitCode maps an engine error kind to a process exit code, per the
// engine's error taxonomy. Unrecognized errors (including plain Go errors
// that never passed through nerrors) fall back to 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var ee *nerrors.EngineError
	if !nerrors.As(err, &ee) {
		return 1
	}

	switch ee.Kind {
	case nerrors.KindProjectAlreadyExists, nerrors.KindInvalidProjectPath:
		return 2
	case nerrors.KindUnsupportedFormat, nerrors.KindInvalidAudio, nerrors.KindAudioValidationFailed:
		return 3
	case nerrors.KindProjectNotFound:
		return 4
	case nerrors.KindProjectLocked, nerrors.KindLockHeld:
		return 5
	case nerrors.KindNothingToUndo, nerrors.KindNothingToRedo, nerrors.KindUndoActionNotFound:
		return 6
	case nerrors.KindBakeRenderFailed, nerrors.KindBakeDurationMismatch:
		return 7
	case nerrors.KindInsufficientDiskSpace, nerrors.KindStorageQuotaExceeded, nerrors.KindOutOfMemory:
		return 8
	case nerrors.KindInvalidSchemaVersion, nerrors.KindMigrationFailed, nerrors.KindCorruptProject:
		return 9
	default:
		return 1
	}
}
