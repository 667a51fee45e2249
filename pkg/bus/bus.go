package bus

import "github.com/fw16synth/fw16synth/pkg/event"

// Bus couples the realtime ring with the telemetry broadcast: every
// Submit reaches the ring (subject to drop-newest backpressure) and the
// telemetry fan-out (subject to per-subscriber lossiness), so the UI
// and Health Probe see what actually happened even when the realtime
// consumer falls behind.
type Bus struct {
	ring      *Ring[event.NoteEvent]
	telemetry *Telemetry[event.NoteEvent]
}

// New creates a Bus with a realtime ring of the given capacity.
func New(capacity int) *Bus {
	return &Bus{
		ring:      NewRing[event.NoteEvent](capacity),
		telemetry: NewTelemetry[event.NoteEvent](),
	}
}

// Submit is called from the input fan-in task, the sole producer. A
// Panic event is promoted to the head of the realtime queue per
// §4.E; everything else preserves submission order.
func (b *Bus) Submit(ev event.NoteEvent) {
	if ev.Kind == event.KindPanic {
		b.ring.PushPanic(ev)
	} else {
		b.ring.Push(ev)
	}
	b.telemetry.Publish(ev)
}

// Consume is called from the audio context, the sole consumer.
func (b *Bus) Consume() (event.NoteEvent, bool) {
	return b.ring.Pop()
}

// Drops reports the realtime ring's cumulative drop count.
func (b *Bus) Drops() uint64 {
	return b.ring.Drops()
}

// Subscribe registers a telemetry receiver (UI, Health Probe).
func (b *Bus) Subscribe() <-chan event.NoteEvent {
	return b.telemetry.Subscribe()
}

// Unsubscribe removes a previously-registered telemetry receiver.
func (b *Bus) Unsubscribe(ch <-chan event.NoteEvent) {
	b.telemetry.Unsubscribe(ch)
}
