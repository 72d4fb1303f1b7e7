// Package manifest handles exprvm.toml configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
)

// FileName is the name of the configuration file.
const FileName = "exprvm.toml"

// Default values for settings the file leaves out.
const (
	DefaultStackSize = 256
	DefaultVerbosity = 1
	DefaultCachePath = ".exprvm/cache.db"

	MaxStackSize = 65536
)

// Manifest represents an exprvm.toml configuration.
type Manifest struct {
	VM       VMConfig       `toml:"vm"`
	Compiler CompilerConfig `toml:"compiler"`
	Log      LogConfig      `toml:"log"`
	Cache    CacheConfig    `toml:"cache"`

	// Dir is the directory containing the exprvm.toml file (set at load time).
	// Relative paths in the file are resolved against it.
	Dir string `toml:"-"`
}

// VMConfig configures the virtual machine.
type VMConfig struct {
	StackSize int  `toml:"stack-size"`
	Trace     bool `toml:"trace"`
}

// CompilerConfig configures compilation output.
type CompilerConfig struct {
	Disassemble bool `toml:"disassemble"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// CacheConfig configures the compiled fragment cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Defaults returns the configuration used when no exprvm.toml exists.
func Defaults() *Manifest {
	return &Manifest{
		VM:    VMConfig{StackSize: DefaultStackSize},
		Log:   LogConfig{Verbosity: DefaultVerbosity},
		Cache: CacheConfig{Path: DefaultCachePath},
	}
}

// Load parses an exprvm.toml file from the given directory. Settings the
// file omits keep their defaults.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Defaults()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find an exprvm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate reports every invalid setting at once.
func (m *Manifest) Validate() error {
	var result *multierror.Error

	if m.VM.StackSize < 1 || m.VM.StackSize > MaxStackSize {
		result = multierror.Append(result,
			fmt.Errorf("vm.stack-size must be between 1 and %d, got %d", MaxStackSize, m.VM.StackSize))
	}
	if m.Log.Verbosity < -4 || m.Log.Verbosity > 5 {
		result = multierror.Append(result,
			fmt.Errorf("log.verbosity must be between -4 and 5, got %d", m.Log.Verbosity))
	}
	if m.Cache.Enabled && strings.TrimSpace(m.Cache.Path) == "" {
		result = multierror.Append(result, errors.New("cache.path is required when cache.enabled is set"))
	}

	return result.ErrorOrNil()
}

// CachePath returns the cache database path, resolved against Dir.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

// LogFile returns the log file path resolved against Dir, or "" to log to
// stderr.
func (m *Manifest) LogFile() string {
	if m.Log.File == "" {
		return ""
	}
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}
