package layers

import (
	"encoding/json"

	"github.com/nuevaaudio/nueva-engine/internal/dsp"
	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
)

// EffectRecord is the serialized form of a single chain entry: {id, type,
// enabled, params} with an open, type-dependent params object.
type EffectRecord struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Enabled bool            `json:"enabled"`
	Params  json.RawMessage `json:"params"`
}

// Layer2 is the ordered DSP chain, kept both as serializable records (what
// gets written to project.json) and, once hydrated, as a live dsp.Chain.
type Layer2 struct {
	Records []EffectRecord `json:"-"`
	chain   *dsp.Chain
}

// NewLayer2 returns an empty chain bound to the given audio format.
func NewLayer2(sampleRate, channels int) *Layer2 {
	return &Layer2{chain: dsp.NewChain(sampleRate, channels)}
}

// Chain returns the live effect chain backing this layer.
func (l *Layer2) Chain() *dsp.Chain { return l.chain }

// MarshalJSON serializes the live chain's effects into Records before
// encoding, so project.json always reflects current chain state.
func (l *Layer2) MarshalJSON() ([]byte, error) {
	records := make([]EffectRecord, 0, l.chain.Len())
	for _, e := range l.chain.Iter() {
		params, err := e.MarshalParams()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		records = append(records, EffectRecord{
			ID:      e.ID(),
			Type:    string(e.Type()),
			Enabled: e.Enabled(),
			Params:  raw,
		})
	}
	return json.Marshal(records)
}

// UnmarshalJSON decodes effect records. Hydrate must be called afterward
// to build a live dsp.Chain, since sample rate/channels aren't known here.
func (l *Layer2) UnmarshalJSON(data []byte) error {
	var records []EffectRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nerrors.New(nerrors.KindCorruptProject, err).Build()
	}
	l.Records = records
	return nil
}

// Hydrate builds a live dsp.Chain from decoded Records, constructing each
// effect by its type tag and applying its serialized params.
func (l *Layer2) Hydrate(sampleRate, channels int) error {
	l.chain = dsp.NewChain(sampleRate, channels)
	for _, rec := range l.Records {
		effect, err := newEffectFromRecord(rec)
		if err != nil {
			return err
		}
		effect.SetEnabled(rec.Enabled)
		l.chain.Add(effect)
	}
	return nil
}

// Clear empties the chain, used by reset-DSP and post-bake cleanup.
func (l *Layer2) Clear() {
	l.chain.Clear()
	l.Records = nil
}

func newEffectFromRecord(rec EffectRecord) (dsp.Effect, error) {
	var params map[string]any
	if len(rec.Params) > 0 {
		if err := json.Unmarshal(rec.Params, &params); err != nil {
			return nil, nerrors.New(nerrors.KindCorruptProject, err).Context("effect_id", rec.ID).Build()
		}
	}

	var effect dsp.Effect
	switch dsp.Kind(rec.Type) {
	case dsp.KindGain:
		effect = dsp.NewGain(rec.ID, 0)
	case dsp.KindParametricEQ:
		effect = dsp.NewParametricEQ(rec.ID, nil)
	case dsp.KindCompressor:
		c, err := dsp.NewCompressor(rec.ID, dsp.CompressorParams{ThresholdDB: -18, Ratio: 4, AttackMS: 5, ReleaseMS: 80})
		if err != nil {
			return nil, err
		}
		effect = c
	case dsp.KindLimiter:
		lm, err := dsp.NewLimiter(rec.ID, dsp.LimiterParams{CeilingDB: -1, ReleaseMS: 50, LookaheadMS: 3})
		if err != nil {
			return nil, err
		}
		effect = lm
	case dsp.KindDelay:
		d, err := dsp.NewDelay(rec.ID, dsp.DelayParams{TimeMS: 250, Feedback: 0.3, Wet: 0.3, Dry: 1, FeedbackLPHz: 8000})
		if err != nil {
			return nil, err
		}
		effect = d
	case dsp.KindSaturation:
		s, err := dsp.NewSaturation(rec.ID, dsp.SaturationParams{Drive: 0.3, Kind: dsp.SaturationTape, Mix: 1})
		if err != nil {
			return nil, err
		}
		effect = s
	case dsp.KindGate:
		g, err := dsp.NewGate(rec.ID, dsp.GateParams{ThresholdDB: -40, AttackMS: 1, ReleaseMS: 100, RangeDB: -60, HysteresisDB: 2})
		if err != nil {
			return nil, err
		}
		effect = g
	default:
		return nil, nerrors.Newf(nerrors.KindEffectNotFound, "unknown effect type %q", rec.Type).
			Context("effect_id", rec.ID).Build()
	}

	if params != nil {
		if err := effect.UnmarshalParams(params); err != nil {
			return nil, err
		}
	}
	return effect, nil
}
