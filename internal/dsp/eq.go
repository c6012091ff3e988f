package dsp

import (
	"math"
	"sync"
)

// EQBand is one band of a ParametricEQ: a biquad filter with validated
// parameter ranges per the Audio EQ Cookbook.
type EQBand struct {
	FreqHz  float64
	GainDB  float64
	Q       float64
	Kind    BiquadKind
	Enabled bool
}

const (
	minFreqHz = 20
	maxFreqHz = 20000
	minGainDB = -24
	maxGainDB = 24
	minQ      = 0.1
	maxQ      = 10
)

// Validate rejects out-of-range parameters rather than clamping them, per
// the setter-validates / coefficient-computation-clamps split.
func (b EQBand) Validate() error {
	if b.FreqHz < minFreqHz || b.FreqHz > maxFreqHz {
		return invalidParam("freq_hz", b.FreqHz, "20-20000")
	}
	if b.GainDB < minGainDB || b.GainDB > maxGainDB {
		return invalidParam("gain_db", b.GainDB, "-24..24")
	}
	if b.Q < minQ || b.Q > maxQ {
		return invalidParam("q", b.Q, "0.1..10")
	}
	return nil
}

func invalidParam(name string, value any, expected string) error {
	return invalidParameterError(name, value, expected)
}

// isBypass reports whether this band contributes nothing: disabled, or a
// gain-bearing kind whose gain is within 0.01 dB of unity.
func (b EQBand) isBypass() bool {
	if !b.Enabled {
		return true
	}
	switch b.Kind {
	case BiquadPeak, BiquadLowShelf, BiquadHighShelf:
		return math.Abs(b.GainDB) < 0.01
	default:
		return false
	}
}

// ParametricEQ is an ordered sequence of EQBands processed sequentially in
// Direct-Form II, each with its own per-channel delay memory.
type ParametricEQ struct {
	id      string
	mu      sync.Mutex
	enabled bool
	bands   []EQBand
	states  []biquadState
	coeffs  []biquadCoeffs
	dirty   bool

	sampleRate int
	channels   int
}

// NewParametricEQ creates an EQ with the given bands.
func NewParametricEQ(id string, bands []EQBand) *ParametricEQ {
	return &ParametricEQ{id: id, enabled: true, bands: bands, dirty: true}
}

func (e *ParametricEQ) ID() string         { return e.id }
func (e *ParametricEQ) Type() Kind         { return KindParametricEQ }
func (e *ParametricEQ) Priority() Priority { return CanonicalPriority(KindParametricEQ) }

func (e *ParametricEQ) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *ParametricEQ) SetEnabled(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = v
}

func (e *ParametricEQ) Prepare(sampleRate, channels int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampleRate = sampleRate
	e.channels = channels
	e.states = make([]biquadState, len(e.bands))
	for i := range e.states {
		e.states[i] = newBiquadState(channels)
	}
	e.dirty = true
}

func (e *ParametricEQ) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.states {
		e.states[i].reset()
	}
}

// SetBands replaces the EQ's bands, triggering lazy coefficient recompute.
func (e *ParametricEQ) SetBands(bands []EQBand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bands = bands
	e.states = make([]biquadState, len(bands))
	for i := range e.states {
		e.states[i] = newBiquadState(e.channels)
	}
	e.dirty = true
}

func (e *ParametricEQ) recompute() {
	if !e.dirty {
		return
	}
	e.coeffs = make([]biquadCoeffs, len(e.bands))
	for i, band := range e.bands {
		if band.isBypass() {
			e.coeffs[i] = unityCoeffs
			continue
		}
		e.coeffs[i] = computeBiquadCoeffs(band.Kind, band.FreqHz, band.GainDB, band.Q, e.sampleRate)
	}
	e.dirty = false
}

func (e *ParametricEQ) Process(buf *Buffer) error {
	e.mu.Lock()
	e.recompute()
	coeffs := e.coeffs
	states := e.states
	e.mu.Unlock()

	for bandIdx, c := range coeffs {
		state := &states[bandIdx]
		for frame := 0; frame < buf.Frames(); frame++ {
			for ch := 0; ch < buf.Channels; ch++ {
				in := float64(buf.At(frame, ch))
				out := state.process(c, ch, in)
				buf.Set(frame, ch, float32(out))
			}
		}
	}
	return checkFinite(buf, e.id)
}

func (e *ParametricEQ) MarshalParams() (map[string]any, error) {
	bands := make([]map[string]any, len(e.bands))
	for i, b := range e.bands {
		bands[i] = map[string]any{
			"freq_hz": b.FreqHz,
			"gain_db": b.GainDB,
			"q":       b.Q,
			"kind":    int(b.Kind),
			"enabled": b.Enabled,
		}
	}
	return map[string]any{"bands": bands}, nil
}

func (e *ParametricEQ) UnmarshalParams(params map[string]any) error {
	raw, ok := params["bands"].([]any)
	if !ok {
		return nil
	}
	bands := make([]EQBand, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		b := EQBand{Enabled: true}
		if v, ok := m["freq_hz"].(float64); ok {
			b.FreqHz = v
		}
		if v, ok := m["gain_db"].(float64); ok {
			b.GainDB = v
		}
		if v, ok := m["q"].(float64); ok {
			b.Q = v
		}
		if v, ok := m["kind"].(float64); ok {
			b.Kind = BiquadKind(int(v))
		}
		if v, ok := m["enabled"].(bool); ok {
			b.Enabled = v
		}
		bands = append(bands, b)
	}
	e.SetBands(bands)
	return nil
}
