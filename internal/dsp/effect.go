package dsp

// Kind identifies one of the closed set of effect variants the chain supports.
type Kind string

const (
	KindGain        Kind = "gain"
	KindParametricEQ Kind = "parametric_eq"
	KindCompressor  Kind = "compressor"
	KindLimiter     Kind = "limiter"
	KindDelay       Kind = "delay"
	KindSaturation  Kind = "saturation"
	KindGate        Kind = "gate"
)

// Priority is the canonical chain-ordering position for an effect kind.
type Priority int

const (
	PriorityGate Priority = iota
	PriorityCorrectiveEQ
	PriorityCompressor
	PriorityCreativeEQ
	PrioritySaturation
	PriorityDelay
	PriorityReverb
	PriorityLimiter
)

// CanonicalPriority maps a kind to its default insertion priority. EQ bands
// default to corrective placement; callers wanting a creative (post-dynamics)
// EQ insert it explicitly at PriorityCreativeEQ via the chain's InsertAt.
func CanonicalPriority(kind Kind) Priority {
	switch kind {
	case KindGate:
		return PriorityGate
	case KindParametricEQ:
		return PriorityCorrectiveEQ
	case KindCompressor:
		return PriorityCompressor
	case KindSaturation:
		return PrioritySaturation
	case KindDelay:
		return PriorityDelay
	case KindLimiter:
		return PriorityLimiter
	default:
		return PriorityCreativeEQ
	}
}

// ProcessResult reports the outcome of running one effect over a buffer.
type ProcessResult struct {
	EffectID string
	Bypassed bool
	Warning  string
}

// Effect is the closed, stateful block-processing contract shared by Gain,
// ParametricEQ, Compressor, Limiter, Delay, Saturation, and Gate. An
// interface is used (rather than a tagged union) because the host adds new
// presets and wraps effects (e.g. for safety auto-mitigation) without the
// chain needing to know about every concrete type.
type Effect interface {
	ID() string
	Type() Kind
	Priority() Priority
	Enabled() bool
	SetEnabled(bool)

	// Prepare (re)allocates per-channel state for the given sample rate and
	// channel count. Called once on chain attach and again on rate changes.
	Prepare(sampleRate, channels int)

	// Process mutates buf in place. Returns an error only for non-finite
	// output; the chain bypasses the effect for the remainder of the call
	// when that happens.
	Process(buf *Buffer) error

	// Reset clears any internal delay/envelope memory without touching parameters.
	Reset()

	// MarshalParams returns the effect's type-specific parameter record for
	// project.json's open `params` field.
	MarshalParams() (map[string]any, error)

	// UnmarshalParams restores parameters from a decoded params object.
	UnmarshalParams(params map[string]any) error
}
