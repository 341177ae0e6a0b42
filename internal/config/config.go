package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"kiln/internal/codegen"
	"kiln/internal/compiler"
	"kiln/internal/errors"
	"kiln/internal/sema"
)

// Config is the contents of a kiln configuration file
type Config struct {
	// Target names the backend: evm, polkadot, solana or soroban
	Target           string
	WarningsAsErrors bool
	// Workers bounds the graphs compiled at once, zero for one per processor
	Workers int
	// Verbosity is the commonlog level, 0 for quiet up to 5 for debug
	Verbosity int
	Codegen   codegen.Options
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Target:    sema.EVM.Name,
		Verbosity: 1,
		Codegen:   codegen.DefaultOptions(),
	}
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see %s.%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Load reads the file at path over the defaults
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	cfg, err := Decode(bufio.NewReader(f))
	if err != nil {
		return Config{}, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// Decode parses a configuration over the defaults. Unknown keys are errors.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if err := tomlSettings.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Dump renders cfg as TOML
func Dump(cfg Config) ([]byte, error) {
	return tomlSettings.Marshal(&cfg)
}

// Validate checks the values a TOML decoder cannot
func (c Config) Validate() error {
	if _, ok := sema.TargetByName(c.Target); !ok {
		return errors.Newf("unknown target %q", c.Target)
	}
	if c.Workers < 0 {
		return errors.Newf("workers must not be negative, got %d", c.Workers)
	}
	if c.Verbosity < 0 || c.Verbosity > 5 {
		return errors.Newf("verbosity must be between 0 and 5, got %d", c.Verbosity)
	}
	return nil
}

// TargetSpec returns the backend the configuration selects
func (c Config) TargetSpec() sema.Target {
	t, ok := sema.TargetByName(c.Target)
	if !ok {
		return sema.EVM
	}
	return t
}

// CompilerOptions returns the options the compiler driver takes
func (c Config) CompilerOptions() compiler.Options {
	return compiler.Options{
		Codegen:          c.Codegen,
		WarningsAsErrors: c.WarningsAsErrors,
		Workers:          c.Workers,
	}
}
