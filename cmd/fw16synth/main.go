// Command fw16synth wires the Device Supervisor, the input fan-in task
// (Key→Note Mapper, Velocity Computer, Arpeggiator, Layer Mixer, Voice
// Allocator), the realtime Event Bus, the Renderer Adapter, and the
// Health Probe into a running controller, and sequences shutdown per
// the concurrency model's three-context contract.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fw16synth/fw16synth/pkg/arp"
	"github.com/fw16synth/fw16synth/pkg/bus"
	"github.com/fw16synth/fw16synth/pkg/config"
	"github.com/fw16synth/fw16synth/pkg/engine"
	"github.com/fw16synth/fw16synth/pkg/event"
	"github.com/fw16synth/fw16synth/pkg/framework/debug"
	"github.com/fw16synth/fw16synth/pkg/framework/process"
	"github.com/fw16synth/fw16synth/pkg/framework/state"
	"github.com/fw16synth/fw16synth/pkg/framework/voice"
	"github.com/fw16synth/fw16synth/pkg/health"
	"github.com/fw16synth/fw16synth/pkg/input/supervisor"
	"github.com/fw16synth/fw16synth/pkg/layer"
	"github.com/fw16synth/fw16synth/pkg/mapper"
	"github.com/fw16synth/fw16synth/pkg/midiin"
	"github.com/fw16synth/fw16synth/pkg/renderer"
	"github.com/fw16synth/fw16synth/pkg/velocity"
)

// sampleRate and framesPerBuffer stand in for the audio driver's actual
// negotiated format; the driver itself (ALSA/JACK/PipeWire) is an
// external collaborator this repository does not bind to — it is
// consumed only through the Renderer contract's "give me N frames on
// demand" shape. A ticker at the resulting buffer period drives that
// shape here.
const (
	sampleRate      = 48000.0
	framesPerBuffer = 256
	secondaryLayer  = 1

	appName = "fw16synth"
)

// bufferPeriod is the wall-clock span one render call stands for at
// sampleRate/framesPerBuffer; the Health Probe's latency threshold and
// the audio-context ticker both derive their cadence from it.
func bufferPeriod() time.Duration {
	return time.Duration(framesPerBuffer / sampleRate * float64(time.Second))
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := debug.New(os.Stderr, appName, debug.DefaultFlags)
	if cfg.Verbose {
		log.SetLevel(debug.LogLevelDebug)
	}

	statePath := cfg.ConfigFilePath
	if statePath == "" {
		if p, err := state.ConfigPath(appName); err == nil {
			statePath = p
		} else {
			log.Warn("no user config directory available, state will not persist: %v", err)
		}
	}

	table, err := loadMappingTable(cfg)
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	core := state.NewCore(cfg.StartOctave, uint8(cfg.StartProgram))
	favorites := applyPersistedState(core, statePath, log)

	nowFn := func() int64 { return time.Now().UnixNano() }
	vc := velocity.New(velocityConfig(cfg))
	alloc := voice.New(cfg.MaxPolyphony, nowFn)
	layerAlloc := voice.New(cfg.MaxPolyphony, nowFn)
	clock := &arp.SampleClock{}
	arpeggiator := arp.New(clock, 120, sampleRate, 1)
	ly := layer.New(secondaryLayer)
	realtimeBus := bus.New(4096)

	eng := engine.New(table, vc, alloc, arpeggiator, ly, layerAlloc, core, realtimeBus)

	synth, err := newSynth(cfg)
	if err != nil {
		log.Error("renderer: %v", err)
		return 1
	}
	if cfg.SoundFontPath != "" {
		if _, err := synth.LoadSoundFont(cfg.SoundFontPath); err != nil {
			log.Error("load soundfont %s: %v", cfg.SoundFontPath, err)
			return 1
		}
	}

	profiler := debug.NewProfiler(512)
	adapter := process.NewAdapter(synth, realtimeBus, profiler)

	sup := supervisor.New(cfg.Grab, log)

	probe := health.New(adapter, &supervisorHealthView{sup}, realtimeBus, log, health.DefaultThresholds(bufferPeriod()), func() {
		realtimeBus.Submit(event.Panic())
	})

	var midiSrc *midiin.Source
	if cfg.MidiInputName != "" {
		midiSrc, err = midiin.Open(cfg.MidiInputName, realtimeBus.Submit)
		if err != nil {
			log.Warn("external MIDI input unavailable: %v", err)
		} else {
			log.Info("external MIDI input connected: %s", midiSrc.PortName())
		}
	}

	rootCtx := context.Background()
	supCtx, supCancel := context.WithCancel(rootCtx)
	audioCtx, audioCancel := context.WithCancel(rootCtx)
	healthCtx, healthCancel := context.WithCancel(rootCtx)

	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		if err := sup.Run(supCtx); err != nil {
			log.Warn("device supervisor stopped: %v", err)
		}
	}()

	inputStop := make(chan struct{})
	inputDone := make(chan struct{})
	go runFanIn(sup, eng, inputStop, inputDone)

	audioDone := make(chan struct{})
	go runAudioContext(audioCtx, adapter, clock, audioDone)

	healthDone := make(chan struct{})
	go func() {
		defer close(healthDone)
		probe.Run(healthCtx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	shutdown(shutdownDeps{
		supCancel:      supCancel,
		audioCancel:    audioCancel,
		healthCancel:   healthCancel,
		supervisorDone: supervisorDone,
		inputStop:      inputStop,
		inputDone:      inputDone,
		audioDone:      audioDone,
		healthDone:     healthDone,
		bus:            realtimeBus,
		midiSrc:        midiSrc,
		core:           core,
		statePath:      statePath,
		velocityMode:   string(cfg.VelocityMode),
		favorites:      favorites,
		log:            log,
	})

	return 130
}

// loadMappingTable resolves the active Key→Note Mapper table: the
// config file's override if one was given, otherwise the built-in
// three-octave layout.
func loadMappingTable(cfg config.Config) (*mapper.Table, error) {
	mf, err := config.LoadMappingFile(cfg.MappingPath)
	if err != nil {
		return nil, err
	}
	table, err := mapper.FromConfig(mf)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return table, nil
}

// applyPersistedState loads state.json (if present) and applies the
// fields that override the CLI-supplied starting octave/program,
// returning the favorites list to carry forward on the next save.
func applyPersistedState(core *state.Core, path string, log *debug.Logger) []string {
	if path == "" {
		return nil
	}
	p, err := state.Load(path)
	if err != nil {
		log.Warn("could not read persisted state: %v", err)
		return nil
	}
	if p.LastOctave != 0 {
		core.Octave = p.LastOctave
	}
	if p.LastProgram != 0 {
		core.CurrentProgram = p.LastProgram
	}
	core.Layer.On = p.LayerOn
	core.Layer.Program = p.LayerProgram
	return p.SoundFontFavorites
}

func velocityConfig(cfg config.Config) velocity.Config {
	vcfg := velocity.DefaultConfig()
	switch cfg.VelocityMode {
	case config.VelocityTiming:
		vcfg.Mode = velocity.ModeTiming
	case config.VelocityPressure:
		vcfg.Mode = velocity.ModePressure
	case config.VelocityPosition:
		vcfg.Mode = velocity.ModePosition
	case config.VelocityFixed:
		vcfg.Mode = velocity.ModeFixed
		vcfg.Fixed = uint8(cfg.FixedVelocity)
	default:
		vcfg.Mode = velocity.ModeCombined
	}
	return vcfg
}

// newSynth resolves the renderer contract implementation for cfg.Driver.
// Binding to an actual FluidSynth instance or ALSA/JACK/PipeWire output
// is an external integration this repository treats as out of scope
// (the renderer and audio driver are both consumed as opaque services);
// every driver therefore currently resolves to the silent fallback,
// which is otherwise reserved for §7's post-failure degraded mode.
func newSynth(cfg config.Config) (renderer.Synth, error) {
	switch cfg.Driver {
	case config.DriverNull, config.DriverALSA, config.DriverJACK, config.DriverPipe:
		return renderer.Silent{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// runFanIn is the input context's fan-in task: the sole consumer of
// supervisor events and sole producer onto the realtime bus. It also
// advances the arpeggiator's step clock on a short ticker so arp steps
// are emitted even while no InputEvent is arriving.
func runFanIn(sup *supervisor.Supervisor, eng *engine.Engine, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	pollTicker := time.NewTicker(2 * time.Millisecond)
	defer pollTicker.Stop()

	for {
		select {
		case <-stop:
			return
		case de, ok := <-sup.Events():
			if !ok {
				return
			}
			if len(de.Raws) > 0 {
				eng.ReleaseDeviceKeys(de.Raws)
			}
			eng.HandleInputEvent(de.Event, de.Class)
		case <-pollTicker.C:
			eng.Poll()
		}
	}
}

// runAudioContext stands in for the audio driver's callback: it calls
// Render at the buffer-period cadence and advances the arpeggiator's
// sample clock by the frame count just rendered. It never allocates
// per call beyond the one pre-sized buffer below.
func runAudioContext(ctx context.Context, adapter *process.Adapter, clock *arp.SampleClock, done chan<- struct{}) {
	defer close(done)

	buf := make([]float32, framesPerBuffer*2)
	ticker := time.NewTicker(bufferPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			adapter.Render(buf)
			clock.Advance(framesPerBuffer)
		}
	}
}

// supervisorHealthView adapts supervisor.Supervisor to health.Supervisor,
// converting supervisor.Snapshot (which carries input.Class, a package
// the Health Probe has no other reason to depend on) into the minimal
// health.DeviceSnapshot shape.
type supervisorHealthView struct {
	sup *supervisor.Supervisor
}

func (v *supervisorHealthView) Snapshots() []health.DeviceSnapshot {
	snaps := v.sup.Snapshots()
	out := make([]health.DeviceSnapshot, len(snaps))
	for i, s := range snaps {
		out[i] = health.DeviceSnapshot{Path: s.Path, Errors: s.Errors}
	}
	return out
}

func (v *supervisorHealthView) Reopen(path string) { v.sup.Reopen(path) }

type shutdownDeps struct {
	supCancel, audioCancel, healthCancel context.CancelFunc
	supervisorDone, inputDone, audioDone, healthDone chan struct{}
	inputStop    chan struct{}
	bus          *bus.Bus
	midiSrc      *midiin.Source
	core         *state.Core
	statePath    string
	velocityMode string
	favorites    []string
	log          *debug.Logger
}

// shutdown implements the sequencing the concurrency model names:
// drain input contexts first, then instruct the audio context to emit
// Panic and exit, then stop supervisory tasks. A hard 2-second deadline
// forces immediate termination regardless of how far the sequence got.
func shutdown(d shutdownDeps) {
	deadline := time.AfterFunc(2*time.Second, func() {
		d.log.Warn("shutdown deadline exceeded, terminating immediately")
		os.Exit(130)
	})
	defer deadline.Stop()

	d.supCancel()
	select {
	case <-d.supervisorDone:
	case <-time.After(500 * time.Millisecond):
	}
	time.Sleep(50 * time.Millisecond) // let any in-flight supervisor events drain into the fan-in task
	close(d.inputStop)
	<-d.inputDone

	d.bus.Submit(event.Panic())
	d.audioCancel()
	<-d.audioDone

	d.healthCancel()
	<-d.healthDone

	if d.midiSrc != nil {
		d.midiSrc.Close()
	}

	if d.statePath != "" {
		snap := d.core.Snapshot(d.velocityMode, d.favorites)
		if err := state.Save(d.statePath, snap); err != nil {
			d.log.Warn("could not persist state: %v", err)
		}
	}
}
