package arp

import "sync/atomic"

// SampleClock is the bridge between the audio context's buffer
// boundaries and the arpeggiator's step clock. The audio context calls
// Advance once per render call with the frame count it just produced;
// the input fan-in task calls Frames to compute elapsed ticks. This is
// the one atomic counter the concurrency model permits across the
// context boundary beyond the sustain/panic flags §5 names —
// ticking is read-only from the fan-in task's perspective, so it never
// becomes a second writer of shared structural state.
type SampleClock struct {
	frames atomic.Uint64
}

// Advance is called from the audio context after filling a buffer.
func (c *SampleClock) Advance(n uint64) {
	c.frames.Add(n)
}

// Frames returns the total frame count rendered so far.
func (c *SampleClock) Frames() uint64 {
	return c.frames.Load()
}
