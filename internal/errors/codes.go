package errors

// Diagnostic codes for the kiln middle-end.
// Codes are stable and appear in rendered diagnostics.
//
// Code ranges:
// E0600-E0699: Data flow errors
// E0700-E0799: Constant evaluation errors
// W0800-W0899: Warnings
// I0900-I0999: Optimizer notes

const (
	// E0601: Local variable read before it is assigned
	ErrorUndefinedVariable = "E0601"

	// E0701: Division or modulo by a literal zero
	ErrorDivideByZero = "E0701"

	// E0702: Shift amount negative or not smaller than the operand width
	ErrorShiftOutOfRange = "E0702"

	// E0703: Exponent negative or too large to evaluate
	ErrorPowerOutOfRange = "E0703"

	// W0801: Condition is always true or always false
	WarningConstantCondition = "W0801"

	// I0901: Operation replaced by a cheaper equivalent
	NoteStrengthReduced = "I0901"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorUndefinedVariable:
		return "Variable is read before it is assigned a value"
	case ErrorDivideByZero:
		return "Division or modulo by zero in a constant expression"
	case ErrorShiftOutOfRange:
		return "Shift amount is negative or exceeds the operand width"
	case ErrorPowerOutOfRange:
		return "Exponent is negative or too large to evaluate"
	case WarningConstantCondition:
		return "Condition has the same value on every execution"
	case NoteStrengthReduced:
		return "Operation was replaced by a cheaper equivalent"
	default:
		return "Unknown error code"
	}
}

// IsWarning returns true if the error code represents a warning rather than an error
func IsWarning(code string) bool {
	return code != "" && (code[0] == 'W' || code >= "E0800" && code < "E0900")
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code == "":
		return "Unknown"
	case code >= "E0600" && code < "E0700":
		return "Data Flow"
	case code >= "E0700" && code < "E0800":
		return "Constant Evaluation"
	case code[0] == 'W':
		return "Warning"
	case code[0] == 'I':
		return "Optimizer"
	default:
		return "Unknown"
	}
}
