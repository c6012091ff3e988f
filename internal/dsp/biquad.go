package dsp

import "math"

// BiquadKind selects the filter response a Biquad band computes coefficients for.
type BiquadKind int

const (
	BiquadPeak BiquadKind = iota
	BiquadLowShelf
	BiquadHighShelf
	BiquadLowPass
	BiquadHighPass
)

// biquadCoeffs holds the normalized Direct-Form-II transfer-function
// coefficients (b0/a0, b1/a0, b2/a0, a1/a0, a2/a0).
type biquadCoeffs struct {
	b0a0, b1a0, b2a0, a1a0, a2a0 float64
}

var unityCoeffs = biquadCoeffs{b0a0: 1}

// biquadState holds the per-channel Direct-Form-II delay memory for one band.
type biquadState struct {
	x1, x2, y1, y2 []float64
}

func newBiquadState(channels int) biquadState {
	return biquadState{
		x1: make([]float64, channels),
		x2: make([]float64, channels),
		y1: make([]float64, channels),
		y2: make([]float64, channels),
	}
}

func (s *biquadState) reset() {
	for i := range s.x1 {
		s.x1[i], s.x2[i], s.y1[i], s.y2[i] = 0, 0, 0, 0
	}
}

// process applies the coefficients to a single sample on the given channel,
// updating that channel's delay memory.
func (s *biquadState) process(c biquadCoeffs, ch int, in float64) float64 {
	out := c.b0a0*in + c.b1a0*s.x1[ch] + c.b2a0*s.x2[ch] - c.a1a0*s.y1[ch] - c.a2a0*s.y2[ch]
	s.x2[ch] = s.x1[ch]
	s.x1[ch] = in
	s.y2[ch] = s.y1[ch]
	s.y1[ch] = out
	return out
}

// computeBiquadCoeffs implements the Audio EQ Cookbook formulas for the
// given kind, with freq clamped to [1, sampleRate/2 - 1] and q to at least 0.01.
func computeBiquadCoeffs(kind BiquadKind, freq, gainDB, q float64, sampleRate int) biquadCoeffs {
	nyquistGuard := float64(sampleRate)/2 - 1
	if freq > nyquistGuard {
		freq = nyquistGuard
	}
	if freq < 1 {
		freq = 1
	}
	if q < 0.01 {
		q = 0.01
	}

	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	alpha := sinW0 / (2 * q)
	a := math.Pow(10, gainDB/40)

	var b0, b1, b2, a0, a1, a2 float64

	switch kind {
	case BiquadPeak:
		b0 = 1 + alpha*a
		b1 = -2 * cosW0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW0
		a2 = 1 - alpha/a
	case BiquadLowShelf:
		sq := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cosW0 + sq)
		b1 = 2 * a * ((a - 1) - (a+1)*cosW0)
		b2 = a * ((a + 1) - (a-1)*cosW0 - sq)
		a0 = (a + 1) + (a-1)*cosW0 + sq
		a1 = -2 * ((a - 1) + (a+1)*cosW0)
		a2 = (a + 1) + (a-1)*cosW0 - sq
	case BiquadHighShelf:
		sq := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cosW0 + sq)
		b1 = -2 * a * ((a - 1) + (a+1)*cosW0)
		b2 = a * ((a + 1) + (a-1)*cosW0 - sq)
		a0 = (a + 1) - (a-1)*cosW0 + sq
		a1 = 2 * ((a - 1) - (a+1)*cosW0)
		a2 = (a + 1) - (a-1)*cosW0 - sq
	case BiquadLowPass:
		b1 = 1 - cosW0
		b0 = b1 / 2
		b2 = b0
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case BiquadHighPass:
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = b0
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	}

	if a0 == 0 {
		return unityCoeffs
	}
	return biquadCoeffs{b0a0: b0 / a0, b1a0: b1 / a0, b2a0: b2 / a0, a1a0: a1 / a0, a2a0: a2 / a0}
}

// onePoleCoeff returns the one-pole smoothing coefficient
// exp(-1/(tau*sampleRate)) used for attack/release envelopes.
func onePoleCoeff(timeConstSeconds float64, sampleRate int) float64 {
	if timeConstSeconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (timeConstSeconds * float64(sampleRate)))
}
