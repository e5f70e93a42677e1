// Package manifest handles jasm.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "jasm.toml"

// Manifest represents a jasm.toml configuration.
type Manifest struct {
	Engine Engine `toml:"engine" json:"engine"`
	Server Server `toml:"server" json:"server"`
	Log    Log    `toml:"log" json:"log"`

	// Dir is the directory containing jasm.toml (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Engine configures the interpreter.
type Engine struct {
	MaxSteps int    `toml:"max-steps" json:"max-steps"`
	Timeout  string `toml:"timeout" json:"timeout"`
	Trace    bool   `toml:"trace" json:"trace"`
}

// Server configures the execution server.
type Server struct {
	Addr           string `toml:"addr" json:"addr"`
	Workers        int    `toml:"workers" json:"workers"`
	Queue          int    `toml:"queue" json:"queue"`
	MaxSourceBytes int    `toml:"max-source-bytes" json:"max-source-bytes"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	Path      string `toml:"path" json:"path"`
}

// Default returns the configuration used when no jasm.toml exists.
func Default() *Manifest {
	return &Manifest{
		Engine: Engine{
			MaxSteps: 10000,
			Timeout:  "2s",
		},
		Server: Server{
			Addr:           ":4567",
			Workers:        4,
			Queue:          64,
			MaxSourceBytes: 64 << 10,
		},
	}
}

// Load reads and parses jasm.toml from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file. Keys absent from the file keep
// their defaults. The result is validated before it is returned.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if _, err := toml.Decode(string(data), m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	m.Dir = filepath.Dir(abs)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a jasm.toml file and loads it.
// Returns Default() if no file is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// TimeoutDuration returns the per-run deadline; zero means none.
func (m *Manifest) TimeoutDuration() time.Duration {
	if m.Engine.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(m.Engine.Timeout)
	if err != nil {
		return 0
	}
	return d
}
