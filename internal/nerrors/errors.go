// Package nerrors provides the engine's centralized error taxonomy: categorized,
// context-bearing errors with recovery suggestions and retry hints.
package nerrors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// Kind groups errors by the taxonomy the engine reports to callers and the CLI.
type Kind string

const (
	// File errors
	KindFileNotFound        Kind = "file-not-found"
	KindPermissionDenied    Kind = "permission-denied"
	KindDiskFull            Kind = "disk-full"
	KindPathTraversal       Kind = "path-traversal"
	KindFileReadError       Kind = "file-read-error"
	KindFileWriteError      Kind = "file-write-error"
	KindDirectoryCreateError Kind = "directory-create-error"
	KindInvalidProjectPath  Kind = "invalid-project-path"

	// Format errors
	KindUnsupportedFormat  Kind = "unsupported-format"
	KindCorruptHeader      Kind = "corrupt-header"
	KindSampleRateMismatch Kind = "sample-rate-mismatch"
	KindInvalidAudio       Kind = "invalid-audio"

	// Project state errors
	KindProjectNotFound      Kind = "project-not-found"
	KindProjectAlreadyExists Kind = "project-already-exists"
	KindInvalidSchemaVersion Kind = "invalid-schema-version"
	KindMigrationFailed      Kind = "migration-failed"
	KindLockHeld             Kind = "lock-held"
	KindProjectLocked        Kind = "project-locked"
	KindCorruptProject       Kind = "corrupt-project"
	KindInvalidProjectStructure Kind = "invalid-project-structure"
	KindProcessingInProgress Kind = "processing-in-progress"

	// Undo/redo errors
	KindNothingToUndo      Kind = "nothing-to-undo"
	KindNothingToRedo      Kind = "nothing-to-redo"
	KindHistoryCorrupt     Kind = "history-corrupt"
	KindUndoActionNotFound Kind = "undo-action-not-found"

	// Audio/DSP errors
	KindInvalidParameter     Kind = "invalid-parameter"
	KindEffectNotFound       Kind = "effect-not-found"
	KindEmptyBuffer          Kind = "empty-buffer"
	KindChannelMismatch      Kind = "channel-mismatch"
	KindAudioNotFound        Kind = "audio-not-found"
	KindInvalidAudioFormat   Kind = "invalid-audio-format"
	KindAudioValidationFailed Kind = "audio-validation-failed"
	KindInvalidSamples       Kind = "invalid-samples"

	// Resource errors
	KindInsufficientDiskSpace Kind = "insufficient-disk-space"
	KindStorageQuotaExceeded  Kind = "storage-quota-exceeded"
	KindOutOfMemory           Kind = "out-of-memory"
	KindGpuUnavailable        Kind = "gpu-unavailable"

	// Neural bridge errors
	KindModelTimeout          Kind = "model-timeout"
	KindModelUnavailable      Kind = "model-unavailable"
	KindBridgeProtocol        Kind = "bridge-protocol"
	KindBridgeConnectionError Kind = "bridge-connection-error"

	// Bake errors
	KindBakeDurationMismatch Kind = "bake-duration-mismatch"
	KindBakeRenderFailed     Kind = "bake-render-failed"

	KindGeneric Kind = "generic"
)

// EngineError wraps a cause with the taxonomy kind, free-form context,
// recovery suggestions, and a retryability hint.
type EngineError struct {
	Err         error
	Kind        Kind
	Context     map[string]any
	Suggestions []string
	Retryable   bool
	Timestamp   time.Time

	mu sync.RWMutex
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool {
	var other *EngineError
	if stderrors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return stderrors.Is(e.Err, target)
}

// GetContext returns a defensive copy of the error's context map.
func (e *EngineError) GetContext() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.Context == nil {
		return nil
	}
	cp := make(map[string]any, len(e.Context))
	maps.Copy(cp, e.Context)
	return cp
}

// Builder provides the fluent construction style used throughout the engine.
type Builder struct {
	err         error
	kind        Kind
	context     map[string]any
	suggestions []string
	retryable   bool
}

// New starts building an EngineError of the given kind wrapping err.
func New(kind Kind, err error) *Builder {
	return &Builder{kind: kind, err: err}
}

// Newf wraps a formatted error of the given kind.
func Newf(kind Kind, format string, args ...any) *Builder {
	return New(kind, fmt.Errorf(format, args...))
}

func (b *Builder) Context(key string, value any) *Builder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

func (b *Builder) Suggest(suggestion string) *Builder {
	b.suggestions = append(b.suggestions, suggestion)
	return b
}

func (b *Builder) Retryable() *Builder {
	b.retryable = true
	return b
}

func (b *Builder) Build() *EngineError {
	kind := b.kind
	if kind == "" {
		kind = KindGeneric
	}
	return &EngineError{
		Err:         b.err,
		Kind:        kind,
		Context:     b.context,
		Suggestions: b.suggestions,
		Retryable:   b.retryable,
		Timestamp:   time.Now(),
	}
}

// IsKind reports whether err is an EngineError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ee *EngineError
	return stderrors.As(err, &ee) && ee.Kind == kind
}

// Standard library passthroughs so callers don't need two error imports.
func Is(err, target error) bool { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Join(errs ...error) error { return stderrors.Join(errs...) }
func NewStd(text string) error { return stderrors.New(text) }
