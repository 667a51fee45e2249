// Package state implements the State Core: the single source of truth
// for octave, transpose, program, layer/arp modes, and sustain, plus
// its atomic persistence to the user config directory. See §4.J
// and §6 ("Persisted state").
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fw16synth/fw16synth/pkg/arp"
)

// Layer mirrors the subset of pkg/layer's configuration the State Core
// tracks; it does not import pkg/layer to avoid a dependency cycle
// (layer.Layer itself holds no persisted-shape data beyond this).
type Layer struct {
	On      bool
	Program uint8
	Channel uint8
}

// Core is the input-thread-confined record described in §4.J. It
// is mutated only between handling one InputEvent and the next; the
// audio context never reads it.
type Core struct {
	Octave            int
	Transpose         int
	CurrentProgram    uint8
	Layer             Layer
	ArpMode           arp.Mode
	SustainPressed    bool
	LastEventTimesRaw map[uint16]int64
}

// NewCore creates a Core at the given starting octave and program, per
// the CLI surface's defaults (§6).
func NewCore(startOctave int, startProgram uint8) *Core {
	return &Core{
		Octave:            startOctave,
		CurrentProgram:    startProgram,
		LastEventTimesRaw: make(map[uint16]int64),
	}
}

// OctaveUp/OctaveDown/TransposeUp/TransposeDown clamp per §3's
// StateCore invariants (octave in [0,8], transpose in [-12,12]).

func (c *Core) OctaveUp() {
	if c.Octave < 8 {
		c.Octave++
	}
}

func (c *Core) OctaveDown() {
	if c.Octave > 0 {
		c.Octave--
	}
}

func (c *Core) TransposeUp() {
	if c.Transpose < 12 {
		c.Transpose++
	}
}

func (c *Core) TransposeDown() {
	if c.Transpose > -12 {
		c.Transpose--
	}
}

// RecordEventTime stores the timestamp of the most recent event for
// a raw key. The Velocity Computer does not read it; it keeps its own
// most-recent-KeyDown time.
func (c *Core) RecordEventTime(raw uint16, t int64) {
	c.LastEventTimesRaw[raw] = t
}

// Persisted is the subset of state written to disk on shutdown, per
// §6 ("last program, last octave, layer/arp mode, velocity mode,
// soundfont favorites list").
type Persisted struct {
	LastProgram        uint8    `json:"last_program"`
	LastOctave         int      `json:"last_octave"`
	LayerOn            bool     `json:"layer_on"`
	LayerProgram       uint8    `json:"layer_program"`
	ArpMode            string   `json:"arp_mode"`
	VelocityMode       string   `json:"velocity_mode"`
	SoundFontFavorites []string `json:"soundfont_favorites,omitempty"`
}

// Snapshot captures the fields of Core that are persisted, pairing
// them with the velocity mode and favorites list the caller tracks
// elsewhere.
func (c *Core) Snapshot(velocityMode string, favorites []string) Persisted {
	return Persisted{
		LastProgram:        c.CurrentProgram,
		LastOctave:         c.Octave,
		LayerOn:            c.Layer.On,
		LayerProgram:       c.Layer.Program,
		ArpMode:            c.ArpMode.String(),
		VelocityMode:       velocityMode,
		SoundFontFavorites: favorites,
	}
}

// configFileName is the name of the persisted state file within the
// user config directory.
const configFileName = "state.json"

// ConfigPath returns the full path to the persisted state file inside
// the user's config directory, creating the directory if needed.
func ConfigPath(appName string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	appDir := filepath.Join(dir, appName)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(appDir, configFileName), nil
}

// Load reads persisted state from path. A missing file is not an
// error: it returns the zero value so the caller can fall back to
// CLI-supplied defaults.
func Load(path string) (Persisted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Persisted{}, nil
		}
		return Persisted{}, err
	}
	var p Persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return Persisted{}, fmt.Errorf("state: parse %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path atomically: it writes to a temp file in the
// same directory, then renames over the destination, so a crash or
// power loss mid-write never leaves a truncated or corrupt state file.
func Save(path string, p Persisted) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "state-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
