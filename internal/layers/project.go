package layers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nuevaaudio/nueva-engine/internal/dsp"
	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
	"github.com/nuevaaudio/nueva-engine/internal/nlog"
	"github.com/nuevaaudio/nueva-engine/internal/nwav"
	"github.com/nuevaaudio/nueva-engine/internal/resource"
)

// CurrentSchemaVersion is the schema_version a freshly created or migrated
// project.json is stamped with.
const CurrentSchemaVersion = "1.0.0"

// EngineVersion is recorded in every project manifest for diagnostics.
const EngineVersion = "0.1.0"

const (
	manifestFilename = "project.json"
	lockFilename      = ".lock"
	audioDirName      = "audio"
	layer1HistoryDir  = "layer1"
	historyDirName    = "history"
	backupsDirName    = "backups"
	exportsDirName    = "exports"
	cacheDirName      = "cache"
)

// subdirs returns the full directory tree every project owns, per the
// on-disk layout: audio/layer1, history, backups, exports, cache.
func subdirs(projectDir string) []string {
	return []string{
		filepath.Join(projectDir, audioDirName, layer1HistoryDir),
		filepath.Join(projectDir, historyDirName),
		filepath.Join(projectDir, backupsDirName),
		filepath.Join(projectDir, exportsDirName),
		filepath.Join(projectDir, cacheDirName),
	}
}

// manifest is the on-disk shape of project.json. Unknown top-level fields
// round-trip through Extra so a newer engine's additions survive a load by
// an older one (and vice versa, for the migration path).
type manifest struct {
	SchemaVersion string          `json:"schema_version"`
	Name          string          `json:"name"`
	Version       string          `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	ModifiedAt    time.Time       `json:"modified_at"`
	Layer0        *Layer0         `json:"layer0"`
	Layer1        *Layer1         `json:"layer1"`
	Layer2        []EffectRecord  `json:"layer2"`
	Conversation  json.RawMessage `json:"conversation_context,omitempty"`

	extra map[string]json.RawMessage `json:"-"`
}

func (m manifest) MarshalJSON() ([]byte, error) {
	type alias manifest
	base, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	if len(m.extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (m *manifest) UnmarshalJSON(data []byte) error {
	type alias manifest
	if err := json.Unmarshal(data, (*alias)(m)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := map[string]bool{
		"schema_version": true, "name": true, "version": true,
		"created_at": true, "modified_at": true, "layer0": true,
		"layer1": true, "layer2": true, "conversation_context": true,
	}
	m.extra = make(map[string]json.RawMessage)
	for k, v := range raw {
		if !known[k] {
			m.extra[k] = v
		}
	}
	return nil
}

// Project ties the three layers together with the directory structure,
// persistence, bake, and reset operations.
type Project struct {
	Name       string
	Dir        string
	CreatedAt  time.Time
	ModifiedAt time.Time

	L0 *Layer0
	L1 *Layer1
	L2 *Layer2

	ConversationContext json.RawMessage
	extra               map[string]json.RawMessage

	dirty      bool
	processing bool

	logger interface {
		Info(msg string, args ...any)
	}
}

// MarkDirty flags the project as having unsaved changes, e.g. after a
// caller mutates its Layer2 chain directly.
func (p *Project) MarkDirty() { p.dirty = true }

// HasUnsavedChanges reports whether Save has not yet been called since the
// last mutation, for the autosave manager's should_autosave gate.
func (p *Project) HasUnsavedChanges() bool { return p.dirty }

// SetProcessing marks whether a neural-bridge call is in flight, so
// autosave and other background operations defer until it completes.
func (p *Project) SetProcessing(v bool) { p.processing = v }

// IsProcessing reports whether a neural-bridge call is currently in flight.
func (p *Project) IsProcessing() bool { return p.processing }

// BackupsDir returns the project's backups directory, where autosave
// snapshots and pre-bake Layer 0 copies are written.
func (p *Project) BackupsDir() string { return filepath.Join(p.Dir, backupsDirName) }

// MarshalJSON renders the project's current in-memory state as
// project.json content, without writing it to disk (used by autosave).
func (p *Project) MarshalJSON() ([]byte, error) {
	m, err := p.toManifest()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

func (p *Project) toManifest() (manifest, error) {
	layer2JSON, err := p.L2.MarshalJSON()
	if err != nil {
		return manifest{}, err
	}
	var records []EffectRecord
	if err := json.Unmarshal(layer2JSON, &records); err != nil {
		return manifest{}, nerrors.New(nerrors.KindGeneric, err).Build()
	}
	return manifest{
		SchemaVersion: CurrentSchemaVersion,
		Name:          p.Name,
		Version:       EngineVersion,
		CreatedAt:     p.CreatedAt,
		ModifiedAt:    p.ModifiedAt,
		Layer0:        p.L0,
		Layer1:        p.L1,
		Layer2:        records,
		Conversation:  p.ConversationContext,
		extra:         p.extra,
	}, nil
}

// CreateProject initializes a new project directory structure from a
// source WAV file and writes the initial manifest.
func CreateProject(name, sourceAudio, projectDir string) (*Project, error) {
	if _, err := os.Stat(filepath.Join(projectDir, manifestFilename)); err == nil {
		return nil, nerrors.Newf(nerrors.KindProjectAlreadyExists, "project already exists at %s", projectDir).Context("path", projectDir).Build()
	}

	audioDir := filepath.Join(projectDir, audioDirName)
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, nerrors.New(nerrors.KindDirectoryCreateError, err).Context("path", audioDir).Build()
	}
	for _, dir := range subdirs(projectDir) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nerrors.New(nerrors.KindGeneric, err).Context("path", dir).Build()
		}
	}

	projectSource := filepath.Join(audioDir, "source.wav")
	if err := nwav.CopyFile(sourceAudio, projectSource); err != nil {
		return nil, err
	}

	l0, err := NewLayer0(projectSource)
	if err != nil {
		return nil, err
	}
	l1, err := NewLayer1FromLayer0(l0, audioDir)
	if err != nil {
		return nil, err
	}
	l2 := NewLayer2(l0.Format.SampleRate, l0.Format.Channels)

	now := time.Now().UTC()
	p := &Project{
		Name:       name,
		Dir:        projectDir,
		CreatedAt:  now,
		ModifiedAt: now,
		L0:         l0,
		L1:         l1,
		L2:         l2,
		logger:     nlog.ForComponent("layers.project"),
	}
	if err := p.Save(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadProject reads project.json and hydrates the live layer state.
func LoadProject(projectDir string) (*Project, error) {
	manifestPath := filepath.Join(projectDir, manifestFilename)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, nerrors.New(nerrors.KindProjectNotFound, err).Context("path", manifestPath).Build()
	}
	return hydrateFromManifestBytes(projectDir, data)
}

// ApplyManifestJSON overwrites this project's in-memory state from a whole
// project.json snapshot (an UndoAction's state_before/state_after, or a
// recovered autosave) and persists it, without changing Dir. Used by the
// undo/redo glue to replay a snapshot onto a live project.
func (p *Project) ApplyManifestJSON(data []byte) error {
	replacement, err := hydrateFromManifestBytes(p.Dir, data)
	if err != nil {
		return err
	}
	*p = *replacement
	p.dirty = true
	return p.Save()
}

func hydrateFromManifestBytes(projectDir string, data []byte) (*Project, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nerrors.New(nerrors.KindCorruptProject, err).Build()
	}
	if m.SchemaVersion == "" {
		m.SchemaVersion = "1.0.0"
	}
	if m.SchemaVersion != CurrentSchemaVersion {
		return nil, nerrors.Newf(nerrors.KindInvalidSchemaVersion, "project schema %q requires migration to %q", m.SchemaVersion, CurrentSchemaVersion).Build()
	}

	l0 := m.Layer0
	if l0 == nil {
		return nil, nerrors.New(nerrors.KindCorruptProject, nerrors.NewStd("missing layer0")).Build()
	}
	l1 := m.Layer1
	if l1 == nil {
		return nil, nerrors.New(nerrors.KindCorruptProject, nerrors.NewStd("missing layer1")).Build()
	}

	l2 := &Layer2{Records: m.Layer2}
	if err := l2.Hydrate(l0.Format.SampleRate, l0.Format.Channels); err != nil {
		return nil, err
	}

	return &Project{
		Name:                m.Name,
		Dir:                 projectDir,
		CreatedAt:           m.CreatedAt,
		ModifiedAt:          m.ModifiedAt,
		L0:                  l0,
		L1:                  l1,
		L2:                  l2,
		ConversationContext: m.Conversation,
		extra:               m.extra,
		logger:              nlog.ForComponent("layers.project"),
	}, nil
}

// Save writes the current in-memory state to project.json.
func (p *Project) Save() error {
	p.ModifiedAt = time.Now().UTC()

	m, err := p.toManifest()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Build()
	}
	manifestPath := filepath.Join(p.Dir, manifestFilename)
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return nerrors.New(nerrors.KindPermissionDenied, err).Context("path", manifestPath).Build()
	}
	p.dirty = false
	return nil
}

// OpenSession writes the .lock file marking this directory as a live
// session, per the single-writer project model.
func (p *Project) OpenSession() error {
	if p.HasLock() {
		return nerrors.Newf(nerrors.KindProjectLocked, "project %s is already locked by another session", p.Dir).Context("path", p.Dir).Build()
	}
	lock := map[string]any{"pid": os.Getpid(), "started_at": time.Now().UTC().Format(time.RFC3339)}
	data, err := json.Marshal(lock)
	if err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Build()
	}
	return os.WriteFile(filepath.Join(p.Dir, lockFilename), data, 0o644)
}

// CloseSession removes the .lock file on a clean exit.
func (p *Project) CloseSession() error {
	err := os.Remove(filepath.Join(p.Dir, lockFilename))
	if err != nil && !os.IsNotExist(err) {
		return nerrors.New(nerrors.KindGeneric, err).Build()
	}
	return nil
}

// HasLock reports whether a prior session's .lock is present, meaning a
// crash-recovery scan is warranted before this one proceeds.
func (p *Project) HasLock() bool {
	_, err := os.Stat(filepath.Join(p.Dir, lockFilename))
	return err == nil
}

// HasAIProcessing reports whether Layer 1 has been touched since import.
func (p *Project) HasAIProcessing() bool { return !p.L1.IsPristine }

// HasDSPEffects reports whether Layer 2 carries any effects.
func (p *Project) HasDSPEffects() bool { return p.L2.Chain().Len() > 0 }

// StateSummary is a quick-inspection snapshot of project state, surfaced by
// the print-state CLI command.
type StateSummary struct {
	Name               string
	HasAIProcessing    bool
	AIModel            *string
	DSPEffectCount     int
	EnabledEffectCount int
	CreatedAt          time.Time
	ModifiedAt         time.Time
}

// Summary returns a StateSummary of the project's current layer state.
func (p *Project) Summary() StateSummary {
	enabled := 0
	for _, e := range p.L2.Chain().Iter() {
		if e.Enabled() {
			enabled++
		}
	}
	return StateSummary{
		Name:               p.Name,
		HasAIProcessing:    p.HasAIProcessing(),
		AIModel:            p.L1.Metadata.ModelUsed,
		DSPEffectCount:     p.L2.Chain().Len(),
		EnabledEffectCount: enabled,
		CreatedAt:          p.CreatedAt,
		ModifiedAt:         p.ModifiedAt,
	}
}

// ResetAI discards AI processing: Layer 1 is overwritten with Layer 0
// bytes and its metadata cleared.
func (p *Project) ResetAI() error {
	if err := p.L1.ResetToSource(p.L0); err != nil {
		return err
	}
	return p.Save()
}

// ResetDSP clears Layer 2.
func (p *Project) ResetDSP() error {
	p.L2.Clear()
	return p.Save()
}

// ResetAll discards both AI processing and the DSP chain.
func (p *Project) ResetAll() error {
	if err := p.L1.ResetToSource(p.L0); err != nil {
		return err
	}
	p.L2.Clear()
	return p.Save()
}

// Bake flattens the rendered Layer1⊕Layer2 signal into a new, immutable
// Layer 0, per the seven-step promotion: validate, back up the current
// source, render, hash and replace, reset Layer 1, clear Layer 2, persist.
func (p *Project) Bake() error {
	info, err := os.Stat(p.L1.AudioPath)
	if err != nil {
		return nerrors.New(nerrors.KindFileNotFound, err).Context("path", p.L1.AudioPath).Build()
	}

	requiredMB := uint64(info.Size()/(1024*1024))*2 + 1
	if requiredMB < resource.MinDiskSpaceBakeMB {
		requiredMB = resource.MinDiskSpaceBakeMB
	}
	if err := resource.CheckDiskSpace(p.Dir, requiredMB); err != nil {
		return err
	}

	samples, format, err := nwav.ReadSamples(p.L1.AudioPath)
	if err != nil {
		return err
	}

	buf := dsp.NewBuffer(len(samples)/format.Channels, format.Channels, format.SampleRate)
	copy(buf.Samples, samples)
	p.L2.Chain().Process(buf)

	if allZero(buf.Samples) {
		return nerrors.New(nerrors.KindBakeRenderFailed, nerrors.NewStd("baked output is silent")).Build()
	}

	renderedDuration := float64(buf.Frames()) / float64(format.SampleRate)
	if diff := renderedDuration - p.L0.Format.DurationSeconds; diff > 0.1 || diff < -0.1 {
		return nerrors.New(nerrors.KindBakeDurationMismatch, nerrors.NewStd("baked duration diverges from source")).
			Context("source_seconds", p.L0.Format.DurationSeconds).
			Context("rendered_seconds", renderedDuration).Build()
	}

	backupsDir := filepath.Join(p.Dir, backupsDirName)
	if err := os.MkdirAll(backupsDir, 0o755); err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Build()
	}
	ts := time.Now().UTC().Format("20060102_150405")
	backupPath := filepath.Join(backupsDir, fmt.Sprintf("layer0_pre_bake_%s.wav", ts))
	if err := nwav.CopyFile(p.L0.SourcePath, backupPath); err != nil {
		return err
	}

	audioDir := filepath.Join(p.Dir, audioDirName)
	stem := strings.TrimSuffix(filepath.Base(p.L0.SourcePath), filepath.Ext(p.L0.SourcePath))
	bakedPath := filepath.Join(audioDir, fmt.Sprintf("%s_baked_%s.wav", stem, ts))
	if err := nwav.WriteSamples(bakedPath, buf.Samples, format.SampleRate, format.Channels, p.L0.Format.BitsPerSample); err != nil {
		return err
	}

	newL0, err := NewLayer0(bakedPath)
	if err != nil {
		return err
	}
	newL1, err := NewLayer1FromLayer0(newL0, audioDir)
	if err != nil {
		return err
	}

	p.L0 = newL0
	p.L1 = newL1
	p.L2.Clear()

	return p.Save()
}

func allZero(samples []float32) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}
