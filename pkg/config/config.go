// Package config implements the CLI surface: flag parsing, environment
// variable overrides, and the raw-key mapping table loader. See §6 and
// §7 of the design notes carried in SPEC_FULL.md.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// VelocityMode mirrors pkg/velocity.Mode as a CLI-facing string enum, so
// this package does not need to import pkg/velocity just to parse a flag.
type VelocityMode string

const (
	VelocityTiming   VelocityMode = "timing"
	VelocityPressure VelocityMode = "pressure"
	VelocityPosition VelocityMode = "position"
	VelocityCombined VelocityMode = "combined"
	VelocityFixed    VelocityMode = "fixed"
)

func (m VelocityMode) valid() bool {
	switch m {
	case VelocityTiming, VelocityPressure, VelocityPosition, VelocityCombined, VelocityFixed:
		return true
	default:
		return false
	}
}

// Driver identifies the audio backend the renderer is wired against.
// The renderer contract itself (pkg/renderer.Synth) is backend-agnostic;
// this only selects which concrete implementation cmd/fw16synth builds.
type Driver string

const (
	DriverALSA Driver = "alsa"
	DriverJACK Driver = "jack"
	DriverPipe Driver = "pipewire"
	DriverNull Driver = "null"
)

func (d Driver) valid() bool {
	switch d {
	case DriverALSA, DriverJACK, DriverPipe, DriverNull:
		return true
	default:
		return false
	}
}

// Config is the fully-resolved, validated CLI surface: flags, then
// environment overrides, then validation, in that order.
type Config struct {
	Driver         Driver
	SoundFontPath  string
	StartOctave    int
	StartProgram   int
	VelocityMode   VelocityMode
	FixedVelocity  int
	MidiInputName  string // empty disables external MIDI input
	Verbose        bool
	Headless       bool
	ConfigFilePath string
	MappingPath    string // empty uses the built-in default table
	MaxPolyphony   int
	Grab           bool
}

// defaults mirrors the CLI surface's stated defaults; every flag below
// is merely a named override of one of these fields.
func defaults() Config {
	return Config{
		Driver:        DriverALSA,
		StartOctave:   4,
		StartProgram:  0,
		VelocityMode:  VelocityCombined,
		FixedVelocity: 100,
		MaxPolyphony:  16,
		Grab:          true,
	}
}

// Parse builds a Config from args (typically os.Args[1:]), then applies
// environment variable overrides, then validates. It returns a
// *ConfigError wrapping a precise, field-naming message on any
// out-of-range value — per §7 ("Config invalid"), there is no silent
// clamping.
func Parse(args []string) (Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("fw16synth", flag.ContinueOnError)
	driver := fs.String("driver", string(cfg.Driver), "audio driver: alsa, jack, pipewire, or null")
	soundfont := fs.String("soundfont", "", "path to a SoundFont (.sf2) file")
	octave := fs.Int("octave", cfg.StartOctave, "starting octave [0,8]")
	program := fs.Int("program", cfg.StartProgram, "starting MIDI program [0,127]")
	velocityMode := fs.String("velocity-mode", string(cfg.VelocityMode), "timing, pressure, position, combined, or fixed")
	fixedVelocity := fs.Int("fixed-velocity", cfg.FixedVelocity, "velocity used when -velocity-mode=fixed, [1,127]")
	midiIn := fs.String("midi-in", "", "substring matching an external MIDI input port name; empty disables it")
	verbose := fs.Bool("verbose", false, "enable debug-level logging")
	headless := fs.Bool("headless", false, "suppress the terminal UI (still reads input devices and renders audio)")
	configFile := fs.String("config", "", "path to the persisted state file; defaults to the user config directory")
	mapping := fs.String("mapping", "", "path to a JSON raw-key mapping table; empty uses the built-in layout")
	polyphony := fs.Int("max-polyphony", cfg.MaxPolyphony, "maximum simultaneous voices")
	grab := fs.Bool("grab", cfg.Grab, "grab input devices exclusively so keystrokes do not leak to the window system")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Driver = Driver(*driver)
	cfg.SoundFontPath = *soundfont
	cfg.StartOctave = *octave
	cfg.StartProgram = *program
	cfg.VelocityMode = VelocityMode(*velocityMode)
	cfg.FixedVelocity = *fixedVelocity
	cfg.MidiInputName = *midiIn
	cfg.Verbose = *verbose
	cfg.Headless = *headless
	cfg.ConfigFilePath = *configFile
	cfg.MappingPath = *mapping
	cfg.MaxPolyphony = *polyphony
	cfg.Grab = *grab

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides applies the environment variable overrides named in
// §6: audio driver, soundfont path, base octave, and velocity source.
// They are read once, here, at startup — never polled afterward.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FW16SYNTH_DRIVER"); v != "" {
		cfg.Driver = Driver(v)
	}
	if v := os.Getenv("FW16SYNTH_SOUNDFONT"); v != "" {
		cfg.SoundFontPath = v
	}
	if v := os.Getenv("FW16SYNTH_OCTAVE"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			cfg.StartOctave = n
		}
	}
	if v := os.Getenv("FW16SYNTH_VELOCITY_MODE"); v != "" {
		cfg.VelocityMode = VelocityMode(v)
	}
}

// ConfigError reports an invalid configuration field by name, per §7's
// "refuse to start with a precise message naming the field" policy.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

func validate(cfg Config) error {
	if !cfg.Driver.valid() {
		return &ConfigError{"driver", fmt.Sprintf("unknown driver %q (want alsa, jack, pipewire, or null)", cfg.Driver)}
	}
	if cfg.StartOctave < 0 || cfg.StartOctave > 8 {
		return &ConfigError{"octave", fmt.Sprintf("%d out of range [0,8]", cfg.StartOctave)}
	}
	if cfg.StartProgram < 0 || cfg.StartProgram > 127 {
		return &ConfigError{"program", fmt.Sprintf("%d out of range [0,127]", cfg.StartProgram)}
	}
	if !cfg.VelocityMode.valid() {
		return &ConfigError{"velocity-mode", fmt.Sprintf("unknown mode %q", cfg.VelocityMode)}
	}
	if cfg.VelocityMode == VelocityFixed && (cfg.FixedVelocity < 1 || cfg.FixedVelocity > 127) {
		return &ConfigError{"fixed-velocity", fmt.Sprintf("%d out of range [1,127]", cfg.FixedVelocity)}
	}
	if cfg.MaxPolyphony < 1 {
		return &ConfigError{"max-polyphony", fmt.Sprintf("%d must be at least 1", cfg.MaxPolyphony)}
	}
	if cfg.SoundFontPath == "" && cfg.Driver != DriverNull {
		return &ConfigError{"soundfont", "no path given (use -soundfont or FW16SYNTH_SOUNDFONT)"}
	}
	return nil
}

// MappingFile is the on-disk shape of a raw-key mapping table, loaded
// with LoadMappingFile and converted by the caller (cmd/fw16synth) into
// a pkg/mapper.Table — this package stays independent of pkg/mapper so
// a config file can be validated without pulling in evdev key codes.
type MappingFile struct {
	Notes    []MappingNote    `json:"notes"`
	Controls []MappingControl `json:"controls"`
}

// MappingNote binds one raw scan-code to a semitone offset and a row
// name ("bottom", "home", "top", or "" for none).
type MappingNote struct {
	Raw    uint16 `json:"raw"`
	Offset int    `json:"offset"`
	Row    string `json:"row"`
}

// MappingControl binds one raw scan-code to a control role by name
// (e.g. "octave_up", "sustain", "panic"; see roleNames in pkg/mapper
// for the full name table).
type MappingControl struct {
	Raw  uint16 `json:"raw"`
	Role string `json:"role"`
}

// LoadMappingFile reads and validates a JSON mapping table from path.
// An empty path is not an error — it is the caller's signal to fall
// back to the built-in default table.
func LoadMappingFile(path string) (MappingFile, error) {
	if path == "" {
		return MappingFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return MappingFile{}, fmt.Errorf("config: read mapping %s: %w", path, err)
	}
	var mf MappingFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return MappingFile{}, fmt.Errorf("config: parse mapping %s: %w", path, err)
	}
	for _, n := range mf.Notes {
		if n.Offset < -24 || n.Offset > 24 {
			return MappingFile{}, &ConfigError{"mapping.notes.offset", fmt.Sprintf("raw %d: offset %d out of range [-24,24]", n.Raw, n.Offset)}
		}
	}
	return mf, nil
}
