// Package config handles tinyvm.toml configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

// FileName is the name of the configuration file.
const FileName = "tinyvm.toml"

// ErrInvalid is returned when a configuration fails schema validation.
var ErrInvalid = errors.New("invalid configuration")

//go:embed schema.cue
var schemaSource string

// Config represents a tinyvm.toml configuration.
type Config struct {
	Decoder Decoder `toml:"decoder" json:"decoder"`
	Output  Output  `toml:"output" json:"output"`
	Cache   Cache   `toml:"cache" json:"cache"`
	Samples Samples `toml:"samples" json:"samples"`

	// Dir is the directory containing the tinyvm.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Decoder configures the bytecode decoder.
type Decoder struct {
	MaxDepth int `toml:"max-depth" json:"max-depth"`
}

// Output configures how decoded programs are printed.
type Output struct {
	Format    string `toml:"format" json:"format"`
	Color     string `toml:"color" json:"color"`
	ShowWords bool   `toml:"show-words" json:"show-words"`
}

// Cache configures the decode cache. An empty path disables it.
type Cache struct {
	Path string `toml:"path" json:"path"`
}

// Samples lists the files decoded when none are named on the command line.
type Samples struct {
	Files     []string `toml:"files" json:"files"`
	KeepGoing bool     `toml:"keep-going" json:"keep-going"`
}

// Default returns the configuration used when no tinyvm.toml exists.
func Default() *Config {
	return &Config{
		Decoder: Decoder{MaxDepth: bytecode.DefaultMaxDepth},
		Output:  Output{Format: "text", Color: "auto", ShowWords: true},
		Samples: Samples{Files: []string{}},
	}
}

// Load parses a tinyvm.toml file from the given directory. Keys missing from
// the file keep their default values.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path. Dir is set to the
// directory containing it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates configuration text.
func Parse(text string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(text, c)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a tinyvm.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
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

// Validate checks c against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	enc := *c
	if enc.Samples.Files == nil {
		enc.Samples.Files = []string{}
	}
	v := schema.Unify(ctx.Encode(&enc, cue.NilIsAny(false)))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DecoderOptions returns the decoder settings as options.
func (c *Config) DecoderOptions() []bytecode.DecoderOption {
	return []bytecode.DecoderOption{bytecode.WithMaxDepth(c.Decoder.MaxDepth)}
}

// CachePath returns the absolute cache path, or "" when caching is disabled.
func (c *Config) CachePath() string {
	if c.Cache.Path == "" {
		return ""
	}
	return c.resolve(c.Cache.Path)
}

// SampleFiles returns the sample paths resolved against the config directory.
func (c *Config) SampleFiles() []string {
	var paths []string
	for _, f := range c.Samples.Files {
		paths = append(paths, c.resolve(f))
	}
	return paths
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}
