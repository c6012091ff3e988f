package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineBuffer(freq float64, fs, channels int, seconds, amplitude float64) *Buffer {
	frames := int(seconds * float64(fs))
	buf := NewBuffer(frames, channels, fs)
	for f := 0; f < frames; f++ {
		v := float32(amplitude * math.Sin(2*math.Pi*freq*float64(f)/float64(fs)))
		for ch := 0; ch < channels; ch++ {
			buf.Set(f, ch, v)
		}
	}
	return buf
}

func TestBufferInvariants(t *testing.T) {
	buf := sineBuffer(440, 44100, 2, 0.1, 1.0)
	assert.Equal(t, 0, len(buf.Samples)%buf.Channels)
	assert.True(t, buf.IsValid())

	buf.Samples[0] = float32(math.NaN())
	assert.False(t, buf.IsValid())
}

func TestBufferMeteringSilence(t *testing.T) {
	buf := NewBuffer(100, 1, 44100)
	peaks := buf.PeakDB()
	rms := buf.RMSDB()
	assert.True(t, math.IsInf(peaks[0], -1))
	assert.True(t, math.IsInf(rms[0], -1))
}

func TestGainS1(t *testing.T) {
	buf := sineBuffer(440, 44100, 1, 0.5, 1.0)
	rmsBefore := buf.RMSDB()[0]

	g := NewGain("g1", -6)
	g.Prepare(44100, 1)
	require.NoError(t, g.Process(buf))

	rmsAfter := buf.RMSDB()[0]
	assert.InDelta(t, -6.0, rmsAfter-rmsBefore, 0.5)
}

func TestEQBypassIdentity(t *testing.T) {
	buf := sineBuffer(1000, 44100, 1, 0.1, 0.5)
	original := make([]float32, len(buf.Samples))
	copy(original, buf.Samples)

	eq := NewParametricEQ("eq1", []EQBand{{FreqHz: 1000, GainDB: 0, Q: 1, Kind: BiquadPeak, Enabled: true}})
	eq.Prepare(44100, 1)
	require.NoError(t, eq.Process(buf))

	for i := range original {
		assert.InDelta(t, float64(original[i]), float64(buf.Samples[i]), 1e-3)
	}
}

func TestEQBoostS2(t *testing.T) {
	buf := sineBuffer(1000, 44100, 1, 0.1, 0.5)
	rmsBefore := buf.RMSDB()[0]

	eq := NewParametricEQ("eq2", []EQBand{{FreqHz: 1000, GainDB: 12, Q: 1, Kind: BiquadPeak, Enabled: true}})
	eq.Prepare(44100, 1)
	require.NoError(t, eq.Process(buf))

	rmsAfter := buf.RMSDB()[0]
	ratio := math.Pow(10, (rmsAfter-rmsBefore)/20)
	assert.GreaterOrEqual(t, ratio, 3.0)
	assert.LessOrEqual(t, ratio, 5.0)
}

func TestCompressorBelowThreshold(t *testing.T) {
	buf := sineBuffer(440, 44100, 1, 0.2, 0.1) // ~ -20dB peak
	rmsBefore := buf.RMSDB()[0]

	c, err := NewCompressor("c1", CompressorParams{ThresholdDB: -6, Ratio: 4, AttackMS: 5, ReleaseMS: 50, KneeDB: 2})
	require.NoError(t, err)
	c.Prepare(44100, 1)
	require.NoError(t, c.Process(buf))

	rmsAfter := buf.RMSDB()[0]
	assert.InDelta(t, 0, rmsAfter-rmsBefore, 1.0)
}

func TestLimiterCeilingS3(t *testing.T) {
	buf := sineBuffer(440, 44100, 1, 0.5, 1.0)

	g := NewGain("g", 12)
	g.Prepare(44100, 1)
	require.NoError(t, g.Process(buf))

	lim, err := NewLimiter("l1", LimiterParams{CeilingDB: -1, ReleaseMS: 50, LookaheadMS: 3})
	require.NoError(t, err)
	lim.Prepare(44100, 1)
	require.NoError(t, lim.Process(buf))

	peak := buf.PeakDB()[0]
	assert.LessOrEqual(t, peak, -1.0+0.5)
}

func TestDelayImpulse(t *testing.T) {
	fs := 44100
	buf := NewBuffer(fs, 1, fs)
	buf.Set(0, 0, 1.0)

	d, err := NewDelay("d1", DelayParams{TimeMS: 100, Feedback: 0, Wet: 1, Dry: 0, FeedbackLPHz: 20000})
	require.NoError(t, err)
	d.Prepare(fs, 1)
	require.NoError(t, d.Process(buf))

	expected := int(math.Round(0.1 * float64(fs)))
	found := -1
	for f := 0; f < buf.Frames(); f++ {
		if math.Abs(float64(buf.At(f, 0))) >= 0.5 {
			found = f
			break
		}
	}
	require.NotEqual(t, -1, found)
	assert.InDelta(t, expected, found, 5)
}

func TestGateOpensOnLoudSignal(t *testing.T) {
	buf := sineBuffer(440, 44100, 1, 0.1, 0.5)

	g, err := NewGate("gt1", GateParams{ThresholdDB: -40, AttackMS: 1, ReleaseMS: 100, HoldMS: 10, RangeDB: -80})
	require.NoError(t, err)
	g.Prepare(44100, 1)
	require.NoError(t, g.Process(buf))

	assert.Greater(t, g.gain, 0.95)
}

func TestSaturationNoState(t *testing.T) {
	s, err := NewSaturation("s1", SaturationParams{Drive: 0.5, Kind: SaturationTape, Mix: 1, OutputDB: 0})
	require.NoError(t, err)
	buf1 := sineBuffer(200, 44100, 1, 0.01, 0.8)
	buf2 := buf1.Clone()
	require.NoError(t, s.Process(buf1))
	s.Reset()
	require.NoError(t, s.Process(buf2))
	for i := range buf1.Samples {
		assert.Equal(t, buf1.Samples[i], buf2.Samples[i])
	}
}

func TestChainOrderDeterminism(t *testing.T) {
	chain := NewChain(44100, 1)
	lim, _ := NewLimiter("lim", LimiterParams{CeilingDB: -1, ReleaseMS: 50, LookaheadMS: 2})
	gt, _ := NewGate("gate", GateParams{ThresholdDB: -40, AttackMS: 1, ReleaseMS: 50, RangeDB: -80})
	comp, _ := NewCompressor("comp", CompressorParams{ThresholdDB: -10, Ratio: 2, AttackMS: 5, ReleaseMS: 50})

	chain.Add(lim)
	chain.Add(gt)
	chain.Add(comp)

	ids := make([]string, 0, 3)
	for _, e := range chain.Iter() {
		ids = append(ids, e.ID())
	}
	assert.Equal(t, []string{"gate", "comp", "lim"}, ids)
}
