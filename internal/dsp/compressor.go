package dsp

import (
	"math"
	"sync"
)

// CompressorParams holds the validated, user-facing controls for Compressor.
type CompressorParams struct {
	ThresholdDB float64 // -60..0
	Ratio       float64 // 1..20
	AttackMS    float64 // 0.1..100
	ReleaseMS   float64 // 10..1000
	KneeDB      float64 // 0..12
	MakeupDB    float64 // 0..24
	AutoMakeup  bool
}

func (p CompressorParams) Validate() error {
	if p.ThresholdDB < -60 || p.ThresholdDB > 0 {
		return invalidParameterError("threshold_db", p.ThresholdDB, "-60..0")
	}
	if p.Ratio < 1 || p.Ratio > 20 {
		return invalidParameterError("ratio", p.Ratio, "1..20")
	}
	if p.AttackMS < 0.1 || p.AttackMS > 100 {
		return invalidParameterError("attack_ms", p.AttackMS, "0.1..100")
	}
	if p.ReleaseMS < 10 || p.ReleaseMS > 1000 {
		return invalidParameterError("release_ms", p.ReleaseMS, "10..1000")
	}
	if p.KneeDB < 0 || p.KneeDB > 12 {
		return invalidParameterError("knee_db", p.KneeDB, "0..12")
	}
	if p.MakeupDB < 0 || p.MakeupDB > 24 {
		return invalidParameterError("makeup_db", p.MakeupDB, "0..24")
	}
	return nil
}

// Compressor is a feed-forward, peak-detecting, stereo-linked dynamics
// processor with hard/soft knee and optional auto-makeup gain.
type Compressor struct {
	id      string
	mu      sync.Mutex
	enabled bool
	params  CompressorParams

	sampleRate  int
	currentGain float64 // linear, smoothed
	currentGRDB float64 // metering
}

// NewCompressor creates a compressor with the given validated parameters.
func NewCompressor(id string, params CompressorParams) (*Compressor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Compressor{id: id, enabled: true, params: params, currentGain: 1.0}, nil
}

func (c *Compressor) ID() string         { return c.id }
func (c *Compressor) Type() Kind         { return KindCompressor }
func (c *Compressor) Priority() Priority { return CanonicalPriority(KindCompressor) }

func (c *Compressor) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Compressor) SetEnabled(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = v
}

func (c *Compressor) Prepare(sampleRate, channels int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sampleRate = sampleRate
	c.currentGain = 1.0
}

func (c *Compressor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentGain = 1.0
	c.currentGRDB = 0
}

// SetParams replaces the compressor's parameters after validating them.
func (c *Compressor) SetParams(p CompressorParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = p
	return nil
}

// reductionDB computes the gain-reduction-in-dB for an input level in dB,
// per the hard/soft-knee gain computer.
func (p CompressorParams) reductionDB(xDB float64) float64 {
	half := p.KneeDB / 2
	kneeStart := p.ThresholdDB - half
	kneeEnd := p.ThresholdDB + half

	switch {
	case p.KneeDB <= 0:
		if xDB <= p.ThresholdDB {
			return 0
		}
		return p.ThresholdDB + (xDB-p.ThresholdDB)/p.Ratio - xDB
	case xDB <= kneeStart:
		return 0
	case xDB >= kneeEnd:
		return p.ThresholdDB + (xDB-p.ThresholdDB)/p.Ratio - xDB
	default:
		t := (xDB - kneeStart) / p.KneeDB
		rEff := 1 + (p.Ratio-1)*t*t
		return (kneeStart + (xDB-kneeStart)/rEff) - xDB
	}
}

// autoMakeupDB estimates makeup gain when AutoMakeup is enabled.
func (p CompressorParams) autoMakeupDB() float64 {
	est := math.Abs(p.ThresholdDB) * (1 - 1/p.Ratio) * 0.5
	if est > 24 {
		est = 24
	}
	return est
}

func (c *Compressor) Process(buf *Buffer) error {
	c.mu.Lock()
	params := c.params
	sampleRate := c.sampleRate
	c.mu.Unlock()

	attackCoeff := onePoleCoeff(params.AttackMS/1000, sampleRate)
	releaseCoeff := onePoleCoeff(params.ReleaseMS/1000, sampleRate)

	makeupDB := params.MakeupDB
	if params.AutoMakeup {
		makeupDB = params.autoMakeupDB()
	}
	makeupLinear := float32(DBToLinear(makeupDB))

	currentGain := c.currentGain
	var grSum float64
	frames := buf.Frames()

	for frame := 0; frame < frames; frame++ {
		peak := 0.0
		for ch := 0; ch < buf.Channels; ch++ {
			v := math.Abs(float64(buf.At(frame, ch)))
			if v > peak {
				peak = v
			}
		}
		xDB := LinearToDB(peak)
		reductionDB := params.reductionDB(xDB)
		targetGain := DBToLinear(reductionDB)

		if targetGain < currentGain {
			currentGain = attackCoeff*currentGain + (1-attackCoeff)*targetGain
		} else {
			currentGain = releaseCoeff*currentGain + (1-releaseCoeff)*targetGain
		}
		grSum += currentGain

		g := float32(currentGain) * makeupLinear
		for ch := 0; ch < buf.Channels; ch++ {
			buf.Set(frame, ch, buf.At(frame, ch)*g)
		}
	}

	c.mu.Lock()
	c.currentGain = currentGain
	if frames > 0 {
		avgGR := grSum / float64(frames)
		grDB := LinearToDB(avgGR)
		if grDB < -96 {
			grDB = -96
		}
		c.currentGRDB = grDB
	}
	c.mu.Unlock()

	return checkFinite(buf, c.id)
}

// CurrentGainReductionDB returns the most recent metering value, floored at -96dB.
func (c *Compressor) CurrentGainReductionDB() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentGRDB
}

func (c *Compressor) MarshalParams() (map[string]any, error) {
	c.mu.Lock()
	p := c.params
	c.mu.Unlock()
	return map[string]any{
		"threshold_db": p.ThresholdDB,
		"ratio":        p.Ratio,
		"attack_ms":    p.AttackMS,
		"release_ms":   p.ReleaseMS,
		"knee_db":      p.KneeDB,
		"makeup_db":    p.MakeupDB,
		"auto_makeup":  p.AutoMakeup,
	}, nil
}

func (c *Compressor) UnmarshalParams(params map[string]any) error {
	p := CompressorParams{Ratio: 1}
	if v, ok := params["threshold_db"].(float64); ok {
		p.ThresholdDB = v
	}
	if v, ok := params["ratio"].(float64); ok {
		p.Ratio = v
	}
	if v, ok := params["attack_ms"].(float64); ok {
		p.AttackMS = v
	}
	if v, ok := params["release_ms"].(float64); ok {
		p.ReleaseMS = v
	}
	if v, ok := params["knee_db"].(float64); ok {
		p.KneeDB = v
	}
	if v, ok := params["makeup_db"].(float64); ok {
		p.MakeupDB = v
	}
	if v, ok := params["auto_makeup"].(bool); ok {
		p.AutoMakeup = v
	}
	return c.SetParams(p)
}
