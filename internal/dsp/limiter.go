package dsp

import (
	"math"
	"sync"
)

// LimiterParams holds the validated controls for Limiter.
type LimiterParams struct {
	CeilingDB  float64 // -12..0
	ReleaseMS  float64 // 10..1000
	LookaheadMS float64 // 1..5
	TruePeak   bool
}

func (p LimiterParams) Validate() error {
	if p.CeilingDB < -12 || p.CeilingDB > 0 {
		return invalidParameterError("ceiling_db", p.CeilingDB, "-12..0")
	}
	if p.ReleaseMS < 10 || p.ReleaseMS > 1000 {
		return invalidParameterError("release_ms", p.ReleaseMS, "10..1000")
	}
	if p.LookaheadMS < 1 || p.LookaheadMS > 5 {
		return invalidParameterError("lookahead_ms", p.LookaheadMS, "1..5")
	}
	return nil
}

// limiterFrame is one queued tuple: the sample across all channels plus its
// frame peak, held in a lookahead window.
type limiterFrame struct {
	samples []float32
	peak    float64
}

// Limiter is a brickwall, lookahead limiter with an optional 4x-oversampled
// true-peak estimate between consecutive samples.
type Limiter struct {
	id      string
	mu      sync.Mutex
	enabled bool
	params  LimiterParams

	sampleRate  int
	channels    int
	window      []limiterFrame // ring of pending frames, lookahead_samples long
	writeIdx    int
	filled      int
	prevSamples []float32 // previous input frame, for true-peak interpolation
	currentGain float64
}

// NewLimiter creates a limiter with the given validated parameters.
func NewLimiter(id string, params LimiterParams) (*Limiter, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{id: id, enabled: true, params: params, currentGain: 1.0}, nil
}

func (l *Limiter) ID() string         { return l.id }
func (l *Limiter) Type() Kind         { return KindLimiter }
func (l *Limiter) Priority() Priority { return CanonicalPriority(KindLimiter) }

func (l *Limiter) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *Limiter) SetEnabled(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = v
}

func (l *Limiter) lookaheadSamples() int {
	n := int(math.Round(l.params.LookaheadMS / 1000 * float64(l.sampleRate)))
	if n < 1 {
		n = 1
	}
	return n
}

func (l *Limiter) Prepare(sampleRate, channels int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sampleRate = sampleRate
	l.channels = channels
	n := l.lookaheadSamples()
	l.window = make([]limiterFrame, n)
	for i := range l.window {
		l.window[i] = limiterFrame{samples: make([]float32, channels)}
	}
	l.prevSamples = make([]float32, channels)
	l.writeIdx = 0
	l.filled = 0
	l.currentGain = 1.0
}

func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.window {
		for ch := range l.window[i].samples {
			l.window[i].samples[ch] = 0
		}
		l.window[i].peak = 0
	}
	for ch := range l.prevSamples {
		l.prevSamples[ch] = 0
	}
	l.writeIdx = 0
	l.filled = 0
	l.currentGain = 1.0
}

// SetParams replaces the limiter's parameters after validating them. Changing
// lookahead requires the caller to re-Prepare the chain.
func (l *Limiter) SetParams(p LimiterParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.params = p
	return nil
}

func (l *Limiter) framePeak(current []float32) float64 {
	peak := 0.0
	for ch, v := range current {
		av := math.Abs(float64(v))
		if av > peak {
			peak = av
		}
		if l.params.TruePeak {
			prev := float64(l.prevSamples[ch])
			for k := 1; k < 4; k++ {
				t := float64(k) / 4
				interp := math.Abs(prev + (float64(v)-prev)*t)
				if interp > peak {
					peak = interp
				}
			}
		}
	}
	return peak
}

func (l *Limiter) Process(buf *Buffer) error {
	l.mu.Lock()
	ceilingLinear := DBToLinear(l.params.CeilingDB)
	releaseCoeff := onePoleCoeff(l.params.ReleaseMS/1000, l.sampleRate)
	n := len(l.window)
	currentGain := l.currentGain
	l.mu.Unlock()

	frames := buf.Frames()
	out := make([]float32, buf.Channels)

	for frame := 0; frame < frames; frame++ {
		current := make([]float32, buf.Channels)
		for ch := 0; ch < buf.Channels; ch++ {
			current[ch] = buf.At(frame, ch)
		}
		peak := l.framePeak(current)

		// push into ring
		slot := &l.window[l.writeIdx]
		copy(slot.samples, current)
		slot.peak = peak
		l.writeIdx = (l.writeIdx + 1) % n
		if l.filled < n {
			l.filled++
		}
		copy(l.prevSamples, current)

		maxPeakInWindow := 0.0
		for i := 0; i < l.filled; i++ {
			if l.window[i].peak > maxPeakInWindow {
				maxPeakInWindow = l.window[i].peak
			}
		}

		target := 1.0
		if maxPeakInWindow > ceilingLinear {
			target = ceilingLinear / maxPeakInWindow
		}

		if target < currentGain {
			currentGain = target // instantaneous attack
		} else {
			currentGain = releaseCoeff*currentGain + (1-releaseCoeff)*target
		}

		// pop oldest
		readIdx := l.writeIdx
		if l.filled < n {
			readIdx = 0
		}
		oldest := l.window[readIdx]
		for ch := 0; ch < buf.Channels; ch++ {
			v := float64(oldest.samples[ch]) * currentGain
			if v > ceilingLinear {
				v = ceilingLinear
			} else if v < -ceilingLinear {
				v = -ceilingLinear
			}
			out[ch] = float32(v)
		}
		for ch := 0; ch < buf.Channels; ch++ {
			buf.Set(frame, ch, out[ch])
		}
	}

	l.mu.Lock()
	l.currentGain = currentGain
	l.mu.Unlock()

	return checkFinite(buf, l.id)
}

func (l *Limiter) MarshalParams() (map[string]any, error) {
	l.mu.Lock()
	p := l.params
	l.mu.Unlock()
	return map[string]any{
		"ceiling_db":   p.CeilingDB,
		"release_ms":   p.ReleaseMS,
		"lookahead_ms": p.LookaheadMS,
		"true_peak":    p.TruePeak,
	}, nil
}

func (l *Limiter) UnmarshalParams(params map[string]any) error {
	p := LimiterParams{}
	if v, ok := params["ceiling_db"].(float64); ok {
		p.CeilingDB = v
	}
	if v, ok := params["release_ms"].(float64); ok {
		p.ReleaseMS = v
	}
	if v, ok := params["lookahead_ms"].(float64); ok {
		p.LookaheadMS = v
	}
	if v, ok := params["true_peak"].(bool); ok {
		p.TruePeak = v
	}
	if err := l.SetParams(p); err != nil {
		return err
	}
	l.Prepare(l.sampleRate, l.channels)
	return nil
}
