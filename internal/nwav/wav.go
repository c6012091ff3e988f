// Package nwav reads and writes PCM WAV files used by every layer operation:
// hashing L0, rendering L1+L2 during bake, and writing baked output.
package nwav

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
)

// Format describes a WAV file's physical layout.
type Format struct {
	SampleRate     int
	BitsPerSample  int
	Channels       int
	NumSamples     int
	DurationSeconds float64
}

// maxImportChannels enforces the >2-channel import rejection.
const maxImportChannels = 2

// ReadFormat inspects a WAV file's header without fully decoding samples.
func ReadFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, nerrors.New(nerrors.KindFileNotFound, err).Context("path", path).Build()
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return Format{}, nerrors.New(nerrors.KindCorruptHeader, nerrors.NewStd("not a valid WAV file")).
			Context("path", path).Build()
	}
	if int(dec.NumChans) > maxImportChannels {
		return Format{}, nerrors.Newf(nerrors.KindUnsupportedFormat, "unsupported channel count %d", dec.NumChans).
			Context("path", path).Context("channels", dec.NumChans).Build()
	}

	duration, err := dec.Duration()
	if err != nil {
		duration = 0
	}

	return Format{
		SampleRate:      int(dec.SampleRate),
		BitsPerSample:   int(dec.BitDepth),
		Channels:        int(dec.NumChans),
		NumSamples:      int(dec.PCMSize) / (int(dec.BitDepth) / 8),
		DurationSeconds: duration.Seconds(),
	}, nil
}

// ReadSamples decodes an entire WAV file into interleaved float32 samples
// normalized to [-1, 1].
func ReadSamples(path string) (samples []float32, format Format, err error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, Format{}, nerrors.New(nerrors.KindFileNotFound, openErr).Context("path", path).Build()
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, decErr := dec.FullPCMBuffer()
	if decErr != nil {
		return nil, Format{}, nerrors.New(nerrors.KindCorruptHeader, decErr).Context("path", path).Build()
	}
	if int(dec.NumChans) > maxImportChannels {
		return nil, Format{}, nerrors.Newf(nerrors.KindUnsupportedFormat, "unsupported channel count %d", dec.NumChans).
			Context("path", path).Build()
	}

	scale := 1.0
	if dec.BitDepth > 1 {
		scale = float64(int(1) << (int(dec.BitDepth) - 1))
	}
	samples = make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(float64(v) / scale)
	}

	duration, _ := dec.Duration()
	format = Format{
		SampleRate:      int(dec.SampleRate),
		BitsPerSample:   int(dec.BitDepth),
		Channels:        int(dec.NumChans),
		NumSamples:      len(samples) / int(dec.NumChans),
		DurationSeconds: duration.Seconds(),
	}
	return samples, format, nil
}

// WriteSamples encodes interleaved float32 samples to a WAV file at the
// given bit depth (16, 24, or 32).
func WriteSamples(path string, samples []float32, sampleRate, channels, bitsPerSample int) error {
	f, err := os.Create(path)
	if err != nil {
		return nerrors.New(nerrors.KindPermissionDenied, err).Context("path", path).Build()
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitsPerSample, channels, 1)

	intData := make([]int, len(samples))
	maxVal := float64(int(1)<<(bitsPerSample-1) - 1)
	for i, s := range samples {
		v := float64(s) * maxVal
		if v > maxVal {
			v = maxVal
		} else if v < -maxVal-1 {
			v = -maxVal - 1
		}
		intData[i] = int(v)
	}

	audioBuf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		Data:           intData,
		SourceBitDepth: bitsPerSample,
	}

	if err := enc.Write(audioBuf); err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Context("path", path).Build()
	}
	return enc.Close()
}

// CopyFile duplicates a WAV file byte-for-byte, used by Layer1's
// from_layer0/reset_to_source and the pre-bake L0 backup.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return nerrors.New(nerrors.KindFileNotFound, err).Context("path", src).Build()
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return nerrors.New(nerrors.KindPermissionDenied, err).Context("path", dst).Build()
	}
	return nil
}
