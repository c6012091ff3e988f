// Package layers implements the three-layer audio data model (immutable
// source L0, AI-processed buffer L1, DSP chain L2) and the Project that
// owns them, including the destructive bake operation.
package layers

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
	"github.com/nuevaaudio/nueva-engine/internal/nwav"
)

// AudioFormat mirrors a WAV file's physical layout, captured at import time.
type AudioFormat struct {
	SampleRate      int     `json:"sample_rate"`
	BitsPerSample   int     `json:"bits_per_sample"`
	Channels        int     `json:"channels"`
	NumSamples      int     `json:"num_samples"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Layer0 is the immutable source audio: a WAV file reference, its original
// format, and a SHA-256 hash of its bytes.
type Layer0 struct {
	SourcePath string      `json:"path"`
	Format     AudioFormat `json:"original_format"`
	CreatedAt  time.Time   `json:"created_at"`
	Checksum   string      `json:"checksum"`
}

// NewLayer0 reads the WAV header at path and hashes its bytes.
func NewLayer0(path string) (*Layer0, error) {
	format, err := nwav.ReadFormat(path)
	if err != nil {
		return nil, err
	}
	checksum, err := hashFile(path)
	if err != nil {
		return nil, err
	}
	return &Layer0{
		SourcePath: path,
		Format: AudioFormat{
			SampleRate:      format.SampleRate,
			BitsPerSample:   format.BitsPerSample,
			Channels:        format.Channels,
			NumSamples:      format.NumSamples,
			DurationSeconds: format.DurationSeconds,
		},
		CreatedAt: time.Now().UTC(),
		Checksum:  checksum,
	}, nil
}

// VerifyIntegrity recomputes the source file's hash and compares it to the
// stored checksum.
func (l *Layer0) VerifyIntegrity() (bool, error) {
	checksum, err := hashFile(l.SourcePath)
	if err != nil {
		return false, err
	}
	return checksum == l.Checksum, nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nerrors.New(nerrors.KindFileNotFound, err).Context("path", path).Build()
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
