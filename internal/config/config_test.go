package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kiln/internal/codegen"
	"kiln/internal/sema"
)

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
Target = "solana"
Workers = 3

[Codegen]
StrengthReduce = false
OptLevel = "aggressive"
`))
	require.NoError(t, err)

	assert.Equal(t, sema.Solana, cfg.TargetSpec())
	assert.Equal(t, 3, cfg.Workers)
	assert.False(t, cfg.Codegen.StrengthReduce)
	assert.True(t, cfg.Codegen.ConstantFolding, "keys left out keep their default")
	assert.Equal(t, codegen.OptAggressive, cfg.Codegen.OptLevel)
}

func TestUnknownKeysAreErrors(t *testing.T) {
	_, err := Decode(strings.NewReader("[Codegen]\nLoopUnrolling = true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LoopUnrolling")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{"unknown target", `Target = "wasm"`, `unknown target "wasm"`},
		{"negative workers", `Workers = -1`, "workers must not be negative"},
		{"verbosity", `Verbosity = 9`, "verbosity must be between 0 and 5"},
		{"opt level", "[Codegen]\nOptLevel = \"extreme\"", "unknown optimization level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDumpLoadsBack(t *testing.T) {
	cfg := Default()
	cfg.Target = "polkadot"
	cfg.WarningsAsErrors = true
	cfg.Codegen.OptLevel = codegen.OptLess

	out, err := Dump(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `OptLevel = "less"`)

	path := filepath.Join(t.TempDir(), "kiln.toml")
	require.NoError(t, os.WriteFile(path, out, 0644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadNamesFileOnSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("Target = \n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), path), err.Error())
}

func TestCompilerOptions(t *testing.T) {
	cfg := Default()
	cfg.Workers = 2
	cfg.WarningsAsErrors = true

	opts := cfg.CompilerOptions()
	assert.Equal(t, 2, opts.Workers)
	assert.True(t, opts.WarningsAsErrors)
	assert.Equal(t, codegen.DefaultOptions(), opts.Codegen)
}
