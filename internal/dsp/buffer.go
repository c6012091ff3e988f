// Package dsp implements the audio-processing engine's signal chain:
// the interleaved sample buffer, the biquad/compressor/limiter/delay/
// saturation/gate effect primitives, and the ordered chain that runs them.
package dsp

import (
	"math"
	"sync"
)

// Buffer is an interleaved sequence of 32-bit float samples normalized to
// [-1, 1]. Length is always an exact multiple of Channels.
type Buffer struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// NewBuffer allocates a zeroed buffer holding the given number of frames.
func NewBuffer(frames, channels, sampleRate int) *Buffer {
	return &Buffer{
		Samples:    make([]float32, frames*channels),
		Channels:   channels,
		SampleRate: sampleRate,
	}
}

// Frames returns the number of frames (samples per channel) in the buffer.
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// At returns the sample at the given frame and channel.
func (b *Buffer) At(frame, channel int) float32 {
	return b.Samples[frame*b.Channels+channel]
}

// Set writes the sample at the given frame and channel.
func (b *Buffer) Set(frame, channel int, value float32) {
	b.Samples[frame*b.Channels+channel] = value
}

// Clone produces an independent deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		Samples:    make([]float32, len(b.Samples)),
		Channels:   b.Channels,
		SampleRate: b.SampleRate,
	}
	copy(out.Samples, b.Samples)
	return out
}

// validSampleCeiling is the absolute-value threshold above which a sample is
// considered evidence of a processing bug rather than a valid signal.
const validSampleCeiling = 16.0

// IsValid reports whether the buffer's length is a multiple of its channel
// count and every sample is finite with |sample| <= 16.
func (b *Buffer) IsValid() bool {
	if b.Channels <= 0 || len(b.Samples)%b.Channels != 0 {
		return false
	}
	for _, s := range b.Samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > validSampleCeiling {
			return false
		}
	}
	return true
}

const negInfDB = math.Inf(-1)

// PeakDB returns the peak level in dBFS for each channel; -Inf if the peak is
// zero for that channel.
func (b *Buffer) PeakDB() []float64 {
	peaks := make([]float64, b.Channels)
	for frame := 0; frame < b.Frames(); frame++ {
		for ch := 0; ch < b.Channels; ch++ {
			v := math.Abs(float64(b.At(frame, ch)))
			if v > peaks[ch] {
				peaks[ch] = v
			}
		}
	}
	out := make([]float64, b.Channels)
	for ch, p := range peaks {
		if p == 0 {
			out[ch] = negInfDB
		} else {
			out[ch] = LinearToDB(p)
		}
	}
	return out
}

// RMSDB returns the RMS level in dBFS for each channel; -Inf if RMS is zero.
func (b *Buffer) RMSDB() []float64 {
	sums := make([]float64, b.Channels)
	frames := b.Frames()
	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < b.Channels; ch++ {
			v := float64(b.At(frame, ch))
			sums[ch] += v * v
		}
	}
	out := make([]float64, b.Channels)
	for ch, sum := range sums {
		if frames == 0 || sum == 0 {
			out[ch] = negInfDB
			continue
		}
		rms := math.Sqrt(sum / float64(frames))
		if rms == 0 {
			out[ch] = negInfDB
		} else {
			out[ch] = LinearToDB(rms)
		}
	}
	return out
}

// DCOffset returns the arithmetic mean sample value for each channel.
func (b *Buffer) DCOffset() []float64 {
	sums := make([]float64, b.Channels)
	frames := b.Frames()
	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < b.Channels; ch++ {
			sums[ch] += float64(b.At(frame, ch))
		}
	}
	out := make([]float64, b.Channels)
	if frames == 0 {
		return out
	}
	for ch, sum := range sums {
		out[ch] = sum / float64(frames)
	}
	return out
}

// ClipRatio returns the fraction of samples with |sample| >= 1.0.
func (b *Buffer) ClipRatio() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	clipped := 0
	for _, s := range b.Samples {
		if math.Abs(float64(s)) >= 1.0 {
			clipped++
		}
	}
	return float64(clipped) / float64(len(b.Samples))
}

// LinearToDB converts a linear amplitude to decibels.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return negInfDB
	}
	return 20 * math.Log10(linear)
}

// DBToLinear converts decibels to a linear amplitude.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// pool is a tiered allocator for interleaved float32 sample slices, grounded
// on the engine's buffer-pool pattern: size-banded sync.Pool instances avoid
// repeated large allocations on the per-block render hot path.
type pool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

const (
	smallFrames  = 4096   // ~85ms at 48kHz stereo
	mediumFrames = 65536  // ~1.4s
	largeFrames  = 524288 // ~11s
)

// NewPool creates a tiered sample-slice pool for the given channel count.
func NewPool(channels int) *Pool {
	p := &Pool{channels: channels}
	p.impl.small.New = func() any { return make([]float32, smallFrames*channels) }
	p.impl.medium.New = func() any { return make([]float32, mediumFrames*channels) }
	p.impl.large.New = func() any { return make([]float32, largeFrames*channels) }
	return p
}

// Pool hands out reusable sample slices sized to the nearest tier.
type Pool struct {
	impl     pool
	channels int
}

// Get returns a slice with capacity for at least `frames` frames, length set
// to exactly frames*channels.
func (p *Pool) Get(frames int) []float32 {
	needed := frames * p.channels
	switch {
	case needed <= smallFrames*p.channels:
		s := p.impl.small.Get().([]float32)
		return s[:needed]
	case needed <= mediumFrames*p.channels:
		s := p.impl.medium.Get().([]float32)
		return s[:needed]
	case needed <= largeFrames*p.channels:
		s := p.impl.large.Get().([]float32)
		return s[:needed]
	default:
		return make([]float32, needed)
	}
}

// Put returns a slice to the tier matching its capacity.
func (p *Pool) Put(s []float32) {
	c := cap(s)
	switch {
	case c <= smallFrames*p.channels:
		p.impl.small.Put(s[:cap(s)]) //nolint:staticcheck // reset to full capacity before reuse
	case c <= mediumFrames*p.channels:
		p.impl.medium.Put(s[:cap(s)])
	case c <= largeFrames*p.channels:
		p.impl.large.Put(s[:cap(s)])
	}
}
