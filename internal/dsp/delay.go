package dsp

import (
	"math"
	"sync"
)

// DelayParams holds the validated controls for Delay.
type DelayParams struct {
	TimeMS      float64 // 1..2000
	Feedback    float64 // 0..0.95
	Wet         float64 // 0..1
	Dry         float64 // 0..1
	PingPong    bool
	FeedbackLPHz float64 // 20..20000
}

func (p DelayParams) Validate() error {
	if p.TimeMS < 1 || p.TimeMS > 2000 {
		return invalidParameterError("time_ms", p.TimeMS, "1..2000")
	}
	if p.Feedback < 0 || p.Feedback > 0.95 {
		return invalidParameterError("feedback", p.Feedback, "0..0.95")
	}
	if p.Wet < 0 || p.Wet > 1 {
		return invalidParameterError("wet", p.Wet, "0..1")
	}
	if p.Dry < 0 || p.Dry > 1 {
		return invalidParameterError("dry", p.Dry, "0..1")
	}
	if p.FeedbackLPHz < 20 || p.FeedbackLPHz > 20000 {
		return invalidParameterError("feedback_lp_hz", p.FeedbackLPHz, "20..20000")
	}
	return nil
}

// onePoleLP is the feedback-path low-pass emulating analog losses in the
// delay's feedback loop.
type onePoleLP struct {
	coeff float64
	state float64
}

func (f *onePoleLP) process(in float64) float64 {
	f.state = f.coeff*in + (1-f.coeff)*f.state
	return f.state
}

func (f *onePoleLP) reset() { f.state = 0 }

// Delay is a time-domain delay line with Catmull-Rom cubic-interpolated
// fractional reads, per-channel circular buffers, and an optional ping-pong
// stereo feedback cross.
type Delay struct {
	id      string
	mu      sync.Mutex
	enabled bool
	params  DelayParams

	sampleRate int
	channels   int
	bufSize    int // power of two
	lines      [][]float64
	writePos   []int
	lpFilters  []onePoleLP
}

// NewDelay creates a delay line with the given validated parameters.
func NewDelay(id string, params DelayParams) (*Delay, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Delay{id: id, enabled: true, params: params}, nil
}

func (d *Delay) ID() string         { return d.id }
func (d *Delay) Type() Kind         { return KindDelay }
func (d *Delay) Priority() Priority { return CanonicalPriority(KindDelay) }

func (d *Delay) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *Delay) SetEnabled(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = v
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (d *Delay) Prepare(sampleRate, channels int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleRate = sampleRate
	d.channels = channels
	d.bufSize = nextPowerOfTwo(int(math.Ceil(2*float64(sampleRate))) + 4)
	d.lines = make([][]float64, channels)
	d.writePos = make([]int, channels)
	d.lpFilters = make([]onePoleLP, channels)
	omega := 2 * math.Pi * d.params.FeedbackLPHz / float64(sampleRate)
	coeff := omega / (1 + omega)
	for ch := range d.lines {
		d.lines[ch] = make([]float64, d.bufSize)
		d.lpFilters[ch] = onePoleLP{coeff: coeff}
	}
}

func (d *Delay) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := range d.lines {
		for i := range d.lines[ch] {
			d.lines[ch][i] = 0
		}
		d.writePos[ch] = 0
		d.lpFilters[ch].reset()
	}
}

// SetParams replaces the delay's parameters. Changing FeedbackLPHz
// recomputes the one-pole coefficient immediately.
func (d *Delay) SetParams(p DelayParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = p
	if d.sampleRate > 0 {
		omega := 2 * math.Pi * p.FeedbackLPHz / float64(d.sampleRate)
		coeff := omega / (1 + omega)
		for ch := range d.lpFilters {
			d.lpFilters[ch].coeff = coeff
		}
	}
	return nil
}

// catmullRom reads a cubic-interpolated sample at a fractional delay from
// the channel's circular buffer, given the four surrounding integer-delay samples.
func (d *Delay) catmullRom(ch int, delaySamples float64) float64 {
	line := d.lines[ch]
	n := len(line)
	base := math.Floor(delaySamples)
	frac := delaySamples - base

	readAt := func(offset int) float64 {
		idx := (d.writePos[ch] - int(base) - offset + n*4) % n
		return line[idx]
	}

	p0 := readAt(-1)
	p1 := readAt(0)
	p2 := readAt(1)
	p3 := readAt(2)

	t := frac
	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

func (d *Delay) Process(buf *Buffer) error {
	d.mu.Lock()
	params := d.params
	delaySamples := params.TimeMS / 1000 * float64(d.sampleRate)
	d.mu.Unlock()

	frames := buf.Frames()
	for frame := 0; frame < frames; frame++ {
		reads := make([]float64, buf.Channels)
		for ch := 0; ch < buf.Channels; ch++ {
			reads[ch] = d.catmullRom(ch, delaySamples)
		}

		var writeIn []float64
		if params.PingPong && buf.Channels == 2 {
			mono := (float64(buf.At(frame, 0)) + float64(buf.At(frame, 1))) / 2
			leftIn := mono + d.lpFilters[1].process(reads[1])*params.Feedback
			rightIn := d.lpFilters[0].process(reads[0]) * params.Feedback
			writeIn = []float64{leftIn, rightIn}
		} else {
			writeIn = make([]float64, buf.Channels)
			for ch := 0; ch < buf.Channels; ch++ {
				writeIn[ch] = float64(buf.At(frame, ch)) + d.lpFilters[ch].process(reads[ch])*params.Feedback
			}
		}

		for ch := 0; ch < buf.Channels; ch++ {
			d.lines[ch][d.writePos[ch]] = writeIn[ch]
			d.writePos[ch] = (d.writePos[ch] + 1) % len(d.lines[ch])

			in := float64(buf.At(frame, ch))
			out := in*params.Dry + reads[ch]*params.Wet
			buf.Set(frame, ch, float32(out))
		}
	}

	return checkFinite(buf, d.id)
}

func (d *Delay) MarshalParams() (map[string]any, error) {
	d.mu.Lock()
	p := d.params
	d.mu.Unlock()
	return map[string]any{
		"time_ms":        p.TimeMS,
		"feedback":       p.Feedback,
		"wet":            p.Wet,
		"dry":            p.Dry,
		"ping_pong":      p.PingPong,
		"feedback_lp_hz": p.FeedbackLPHz,
	}, nil
}

func (d *Delay) UnmarshalParams(params map[string]any) error {
	p := DelayParams{FeedbackLPHz: 20000}
	if v, ok := params["time_ms"].(float64); ok {
		p.TimeMS = v
	}
	if v, ok := params["feedback"].(float64); ok {
		p.Feedback = v
	}
	if v, ok := params["wet"].(float64); ok {
		p.Wet = v
	}
	if v, ok := params["dry"].(float64); ok {
		p.Dry = v
	}
	if v, ok := params["ping_pong"].(bool); ok {
		p.PingPong = v
	}
	if v, ok := params["feedback_lp_hz"].(float64); ok {
		p.FeedbackLPHz = v
	}
	return d.SetParams(p)
}
