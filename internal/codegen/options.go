package codegen

import (
	"fmt"
	"strings"
)

// OptLevel selects how hard the backend optimises
type OptLevel int

const (
	OptNone OptLevel = iota
	OptLess
	OptDefault
	OptAggressive
)

func (o OptLevel) String() string {
	switch o {
	case OptNone:
		return "none"
	case OptLess:
		return "less"
	case OptAggressive:
		return "aggressive"
	default:
		return "default"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o OptLevel) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *OptLevel) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "none", "0":
		*o = OptNone
	case "less", "1":
		*o = OptLess
	case "default", "2":
		*o = OptDefault
	case "aggressive", "3":
		*o = OptAggressive
	default:
		return fmt.Errorf("unknown optimization level %q", string(text))
	}
	return nil
}

// Options controls code generation and the optimisation pipeline
type Options struct {
	DeadStorage                    bool
	ConstantFolding                bool
	StrengthReduce                 bool
	VectorToSlice                  bool
	CommonSubexpressionElimination bool
	OptLevel                       OptLevel
	GenerateDebugInformation       bool
	LogAPIReturnCodes              bool
	LogRuntimeErrors               bool
	LogPrints                      bool
}

// DefaultOptions enables every pass
func DefaultOptions() Options {
	return Options{
		DeadStorage:                    true,
		ConstantFolding:                true,
		StrengthReduce:                 true,
		VectorToSlice:                  true,
		CommonSubexpressionElimination: true,
		OptLevel:                       OptDefault,
		LogPrints:                      true,
	}
}

// NoOptimizations disables every pass
func NoOptimizations() Options {
	return Options{OptLevel: OptNone, LogPrints: true}
}
