package dsp

import "sync/atomic"

// Gain applies a constant scalar gain in dB to every sample, grounded on the
// processor's pattern of storing live parameters behind an atomic for
// lock-free reads on the processing hot path.
type Gain struct {
	id      string
	enabled atomic.Bool
	gainDB  atomic.Value // float64
}

// NewGain creates a gain stage at the given dB.
func NewGain(id string, gainDB float64) *Gain {
	g := &Gain{id: id}
	g.enabled.Store(true)
	g.gainDB.Store(gainDB)
	return g
}

func (g *Gain) ID() string        { return g.id }
func (g *Gain) Type() Kind        { return KindGain }
func (g *Gain) Priority() Priority { return CanonicalPriority(KindGain) }
func (g *Gain) Enabled() bool     { return g.enabled.Load() }
func (g *Gain) SetEnabled(v bool) { g.enabled.Store(v) }

// SetGainDB updates the gain applied by subsequent Process calls.
func (g *Gain) SetGainDB(db float64) { g.gainDB.Store(db) }

// GainDB returns the current gain in dB.
func (g *Gain) GainDB() float64 { return g.gainDB.Load().(float64) }

func (g *Gain) Prepare(sampleRate, channels int) {}
func (g *Gain) Reset()                           {}

func (g *Gain) Process(buf *Buffer) error {
	linear := float32(DBToLinear(g.GainDB()))
	for i := range buf.Samples {
		buf.Samples[i] *= linear
	}
	return checkFinite(buf, g.id)
}

func (g *Gain) MarshalParams() (map[string]any, error) {
	return map[string]any{"gain_db": g.GainDB()}, nil
}

func (g *Gain) UnmarshalParams(params map[string]any) error {
	if v, ok := params["gain_db"].(float64); ok {
		g.SetGainDB(v)
	}
	return nil
}
