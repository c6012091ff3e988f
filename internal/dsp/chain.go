package dsp

import (
	"log/slog"
	"sort"

	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
	"github.com/nuevaaudio/nueva-engine/internal/nlog"
)

// Chain is the ordered, mutable sequence of effects that process a shared
// buffer in place. Insertion order follows canonical priority unless a
// caller asks for an explicit index.
type Chain struct {
	effects    []Effect
	sampleRate int
	channels   int
	logger     *slog.Logger
}

// NewChain creates an empty chain prepared for the given format.
func NewChain(sampleRate, channels int) *Chain {
	return &Chain{
		sampleRate: sampleRate,
		channels:   channels,
		logger:     nlog.ForComponent("dsp.chain"),
	}
}

// Len reports the number of effects in the chain.
func (c *Chain) Len() int { return len(c.effects) }

// IsEmpty reports whether the chain has no effects.
func (c *Chain) IsEmpty() bool { return len(c.effects) == 0 }

// Add inserts e at the first position whose existing effect's canonical
// priority exceeds e's priority — a stable insertion-sort by priority.
func (c *Chain) Add(e Effect) {
	e.Prepare(c.sampleRate, c.channels)
	idx := len(c.effects)
	for i, existing := range c.effects {
		if existing.Priority() > e.Priority() {
			idx = i
			break
		}
	}
	c.insertAt(idx, e)
}

// InsertAt inserts e at an explicit index, clamped to [0, len].
func (c *Chain) InsertAt(index int, e Effect) {
	e.Prepare(c.sampleRate, c.channels)
	if index < 0 {
		index = 0
	}
	if index > len(c.effects) {
		index = len(c.effects)
	}
	c.insertAt(index, e)
}

func (c *Chain) insertAt(index int, e Effect) {
	c.effects = append(c.effects, nil)
	copy(c.effects[index+1:], c.effects[index:])
	c.effects[index] = e
}

// Remove deletes the effect with the given id. Reports whether it was found.
func (c *Chain) Remove(id string) bool {
	for i, e := range c.effects {
		if e.ID() == id {
			c.effects = append(c.effects[:i], c.effects[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the effect with the given id, or nil.
func (c *Chain) Get(id string) Effect {
	for _, e := range c.effects {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

// Move relocates the effect with the given id to newIndex (clamped).
func (c *Chain) Move(id string, newIndex int) bool {
	for i, e := range c.effects {
		if e.ID() == id {
			c.effects = append(c.effects[:i], c.effects[i+1:]...)
			if newIndex < 0 {
				newIndex = 0
			}
			if newIndex > len(c.effects) {
				newIndex = len(c.effects)
			}
			c.insertAt(newIndex, e)
			return true
		}
	}
	return false
}

// Clear removes all effects.
func (c *Chain) Clear() { c.effects = nil }

// Iter returns the effects in current chain order. Callers must not mutate
// the returned slice.
func (c *Chain) Iter() []Effect { return c.effects }

// SortByCanonicalPriority re-orders the chain's current effects by a stable
// sort on canonical priority, used to verify chain-order determinism
// regardless of the sequence effects were added in.
func (c *Chain) SortByCanonicalPriority() {
	sort.SliceStable(c.effects, func(i, j int) bool {
		return c.effects[i].Priority() < c.effects[j].Priority()
	})
}

// Process runs every enabled effect over buf in chain order. An effect
// producing non-finite output is bypassed for the remainder of this call
// and reports a warning; the chain continues with the remaining effects.
func (c *Chain) Process(buf *Buffer) []ProcessResult {
	results := make([]ProcessResult, 0, len(c.effects))
	for _, e := range c.effects {
		if !e.Enabled() {
			results = append(results, ProcessResult{EffectID: e.ID(), Bypassed: true})
			continue
		}
		if err := e.Process(buf); err != nil {
			if c.logger != nil {
				c.logger.Warn("effect bypassed after invalid output", "effect_id", e.ID(), "error", err)
			}
			results = append(results, ProcessResult{EffectID: e.ID(), Bypassed: true, Warning: err.Error()})
			continue
		}
		results = append(results, ProcessResult{EffectID: e.ID()})
	}
	return results
}

// Reset clears all effects' internal state without removing them from the chain.
func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

// checkFinite is the shared guard every Process implementation calls before
// returning; it reports an InvalidSamples error.
func checkFinite(buf *Buffer, effectID string) error {
	if !buf.IsValid() {
		return nerrors.New(nerrors.KindInvalidSamples, nerrors.NewStd("effect produced non-finite samples")).
			Context("effect_id", effectID).
			Build()
	}
	return nil
}
