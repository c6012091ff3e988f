package layers

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/nuevaaudio/nueva-engine/internal/nwav"
)

// Layer1Metadata records what AI processing, if any, produced the current
// Layer1 audio.
type Layer1Metadata struct {
	ModelUsed            *string         `json:"model_used"`
	Prompt               *string         `json:"prompt"`
	ProcessingParams     json.RawMessage `json:"processing_params,omitempty"`
	ProcessedAt          *time.Time      `json:"processed_at"`
	IntentionalArtifacts []string        `json:"intentional_artifacts"`
}

// HasProcessing reports whether this metadata records an applied AI render.
func (m Layer1Metadata) HasProcessing() bool { return m.ModelUsed != nil }

func (m *Layer1Metadata) clear() {
	m.ModelUsed = nil
	m.Prompt = nil
	m.ProcessingParams = nil
	m.ProcessedAt = nil
	m.IntentionalArtifacts = nil
}

// Layer1 is the AI state buffer: initially a byte-identical copy of Layer0,
// later replaced by neural renders. Pristine iff untouched since creation
// or the last reset.
type Layer1 struct {
	AudioPath  string         `json:"path"`
	Metadata   Layer1Metadata `json:"metadata"`
	IsPristine bool           `json:"is_pristine"`
}

// NewLayer1FromLayer0 copies l0's source audio into projectDir as the
// initial, pristine Layer1 file.
func NewLayer1FromLayer0(l0 *Layer0, projectDir string) (*Layer1, error) {
	stem := strings.TrimSuffix(filepath.Base(l0.SourcePath), filepath.Ext(l0.SourcePath))
	audioPath := filepath.Join(projectDir, stem+"_layer1.wav")
	if err := nwav.CopyFile(l0.SourcePath, audioPath); err != nil {
		return nil, err
	}
	return &Layer1{AudioPath: audioPath, IsPristine: true}, nil
}

// ResetToSource discards any AI processing, copying l0's bytes back over
// this layer's audio file and clearing its metadata.
func (l *Layer1) ResetToSource(l0 *Layer0) error {
	if err := nwav.CopyFile(l0.SourcePath, l.AudioPath); err != nil {
		return err
	}
	l.Metadata.clear()
	l.IsPristine = true
	return nil
}

// MarkProcessed records a completed neural render.
func (l *Layer1) MarkProcessed(model, prompt string, params json.RawMessage) {
	l.Metadata.ModelUsed = &model
	l.Metadata.Prompt = &prompt
	l.Metadata.ProcessingParams = params
	now := time.Now().UTC()
	l.Metadata.ProcessedAt = &now
	l.IsPristine = false
}

// AddIntentionalArtifact records an artifact a neural style intentionally
// introduced, so downstream DSP (e.g. a gate) knows not to remove it.
func (l *Layer1) AddIntentionalArtifact(artifact string) {
	for _, a := range l.Metadata.IntentionalArtifacts {
		if a == artifact {
			return
		}
	}
	l.Metadata.IntentionalArtifacts = append(l.Metadata.IntentionalArtifacts, artifact)
}

// RemoveIntentionalArtifact un-marks an artifact as intentional.
func (l *Layer1) RemoveIntentionalArtifact(artifact string) {
	out := l.Metadata.IntentionalArtifacts[:0]
	for _, a := range l.Metadata.IntentionalArtifacts {
		if a != artifact {
			out = append(out, a)
		}
	}
	l.Metadata.IntentionalArtifacts = out
}

// IsArtifactIntentional reports whether artifact was marked intentional.
func (l *Layer1) IsArtifactIntentional(artifact string) bool {
	for _, a := range l.Metadata.IntentionalArtifacts {
		if a == artifact {
			return true
		}
	}
	return false
}
