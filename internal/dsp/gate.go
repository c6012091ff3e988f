package dsp

import (
	"math"
	"sync"
)

// GateParams holds the validated controls for Gate.
type GateParams struct {
	ThresholdDB float64 // -80..0
	AttackMS    float64 // 0.1..50
	ReleaseMS   float64 // 10..500
	HoldMS      float64 // 0..100
	RangeDB     float64 // -80..0
	HysteresisDB float64 // default 2
}

func (p GateParams) Validate() error {
	if p.ThresholdDB < -80 || p.ThresholdDB > 0 {
		return invalidParameterError("threshold_db", p.ThresholdDB, "-80..0")
	}
	if p.AttackMS < 0.1 || p.AttackMS > 50 {
		return invalidParameterError("attack_ms", p.AttackMS, "0.1..50")
	}
	if p.ReleaseMS < 10 || p.ReleaseMS > 500 {
		return invalidParameterError("release_ms", p.ReleaseMS, "10..500")
	}
	if p.HoldMS < 0 || p.HoldMS > 100 {
		return invalidParameterError("hold_ms", p.HoldMS, "0..100")
	}
	if p.RangeDB < -80 || p.RangeDB > 0 {
		return invalidParameterError("range_db", p.RangeDB, "-80..0")
	}
	return nil
}

type gateState int

const (
	gateClosed gateState = iota
	gateAttack
	gateOpen
	gateHold
	gateRelease
)

// Gate is a hysteresis noise gate with a five-state envelope machine:
// Closed -> Attack -> Open -> Hold -> Release -> (Attack|Closed).
type Gate struct {
	id      string
	mu      sync.Mutex
	enabled bool
	params  GateParams

	sampleRate int
	state      gateState
	envelope   float64
	gain       float64
	holdCount  int
}

// NewGate creates a gate with the given validated parameters.
func NewGate(id string, params GateParams) (*Gate, error) {
	if params.HysteresisDB == 0 {
		params.HysteresisDB = 2
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Gate{id: id, enabled: true, params: params, gain: 1.0}, nil
}

func (g *Gate) ID() string         { return g.id }
func (g *Gate) Type() Kind         { return KindGate }
func (g *Gate) Priority() Priority { return CanonicalPriority(KindGate) }

func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *Gate) SetEnabled(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = v
}

func (g *Gate) Prepare(sampleRate, channels int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sampleRate = sampleRate
	g.state = gateClosed
	g.envelope = 0
	g.gain = DBToLinear(g.params.RangeDB)
}

func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = gateClosed
	g.envelope = 0
	g.holdCount = 0
	g.gain = DBToLinear(g.params.RangeDB)
}

// SetParams replaces the gate's parameters after validating them.
func (g *Gate) SetParams(p GateParams) error {
	if p.HysteresisDB == 0 {
		p.HysteresisDB = 2
	}
	if err := p.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.params = p
	return nil
}

const (
	gateEnvAttackMS  = 0.1
	gateEnvReleaseMS = 50
)

func (g *Gate) Process(buf *Buffer) error {
	g.mu.Lock()
	params := g.params
	sampleRate := g.sampleRate
	state := g.state
	envelope := g.envelope
	gain := g.gain
	holdCount := g.holdCount
	g.mu.Unlock()

	envAttackCoeff := onePoleCoeff(gateEnvAttackMS/1000, sampleRate)
	envReleaseCoeff := onePoleCoeff(gateEnvReleaseMS/1000, sampleRate)
	attackCoeff := onePoleCoeff(params.AttackMS/1000, sampleRate)
	releaseCoeff := onePoleCoeff(params.ReleaseMS/1000, sampleRate)

	thresholdHighLinear := DBToLinear(params.ThresholdDB)
	thresholdLowLinear := DBToLinear(params.ThresholdDB - params.HysteresisDB)
	rangeLinear := DBToLinear(params.RangeDB)
	holdSamples := int(params.HoldMS / 1000 * float64(sampleRate))

	frames := buf.Frames()
	for frame := 0; frame < frames; frame++ {
		peak := 0.0
		for ch := 0; ch < buf.Channels; ch++ {
			v := math.Abs(float64(buf.At(frame, ch)))
			if v > peak {
				peak = v
			}
		}
		if peak > envelope {
			envelope = envAttackCoeff*envelope + (1-envAttackCoeff)*peak
		} else {
			envelope = envReleaseCoeff*envelope + (1-envReleaseCoeff)*peak
		}

		switch state {
		case gateClosed:
			if envelope > thresholdHighLinear {
				state = gateAttack
			}
		case gateAttack:
			if gain >= 0.99 {
				state = gateOpen
			}
		case gateOpen:
			if envelope < thresholdLowLinear {
				state = gateHold
				holdCount = holdSamples
			}
		case gateHold:
			switch {
			case envelope > thresholdHighLinear:
				state = gateOpen
			case holdCount == 0:
				state = gateRelease
			default:
				holdCount--
			}
		case gateRelease:
			switch {
			case envelope > thresholdHighLinear:
				state = gateAttack
			case gain <= rangeLinear:
				state = gateClosed
			}
		}

		target := 1.0
		if state == gateClosed {
			target = rangeLinear
		}
		if target < gain {
			gain = releaseCoeff*gain + (1-releaseCoeff)*target
		} else {
			gain = attackCoeff*gain + (1-attackCoeff)*target
		}

		gf := float32(gain)
		for ch := 0; ch < buf.Channels; ch++ {
			buf.Set(frame, ch, buf.At(frame, ch)*gf)
		}
	}

	g.mu.Lock()
	g.state = state
	g.envelope = envelope
	g.gain = gain
	g.holdCount = holdCount
	g.mu.Unlock()

	return checkFinite(buf, g.id)
}

func (g *Gate) MarshalParams() (map[string]any, error) {
	g.mu.Lock()
	p := g.params
	g.mu.Unlock()
	return map[string]any{
		"threshold_db": p.ThresholdDB,
		"attack_ms":    p.AttackMS,
		"release_ms":   p.ReleaseMS,
		"hold_ms":      p.HoldMS,
		"range_db":     p.RangeDB,
		"hysteresis_db": p.HysteresisDB,
	}, nil
}

func (g *Gate) UnmarshalParams(params map[string]any) error {
	p := GateParams{HysteresisDB: 2}
	if v, ok := params["threshold_db"].(float64); ok {
		p.ThresholdDB = v
	}
	if v, ok := params["attack_ms"].(float64); ok {
		p.AttackMS = v
	}
	if v, ok := params["release_ms"].(float64); ok {
		p.ReleaseMS = v
	}
	if v, ok := params["hold_ms"].(float64); ok {
		p.HoldMS = v
	}
	if v, ok := params["range_db"].(float64); ok {
		p.RangeDB = v
	}
	if v, ok := params["hysteresis_db"].(float64); ok {
		p.HysteresisDB = v
	}
	return g.SetParams(p)
}
