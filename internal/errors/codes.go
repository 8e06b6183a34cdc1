// Package errors provides structured error handling for beam.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Usage store errors
//   - 3XX: Gateway errors
//   - 4XX: State machine and validation errors
//   - 5XX: Provider and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates usage store I/O errors.
	CategoryStore Category = "STORE"
	// CategoryGateway indicates single-instance gateway errors.
	CategoryGateway Category = "GATEWAY"
	// CategoryState indicates state machine contract violations and bad input.
	CategoryState Category = "STATE"
	// CategoryProvider indicates provider execution failures.
	CategoryProvider Category = "PROVIDER"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Usage store errors (200-299)
	ErrCodeStoreOpen        = "ERR_201_STORE_OPEN"
	ErrCodeStoreSchema      = "ERR_202_STORE_SCHEMA"
	ErrCodeStoreWrite       = "ERR_203_STORE_WRITE"
	ErrCodeStoreQuery       = "ERR_204_STORE_QUERY"
	ErrCodeStoreNoTxSupport = "ERR_205_STORE_NO_TX_SUPPORT"

	// Gateway errors (300-399)
	ErrCodeGatewayBind     = "ERR_301_GATEWAY_BIND"
	ErrCodeGatewayTimeout  = "ERR_302_GATEWAY_TIMEOUT"
	ErrCodeGatewayNoServer = "ERR_303_GATEWAY_NO_SERVER"

	// State and validation errors (400-499)
	ErrCodeInvalidState   = "ERR_401_INVALID_STATE"
	ErrCodeInvalidCommand = "ERR_402_INVALID_COMMAND"

	// Provider and internal errors (500-599)
	ErrCodeProviderFailed  = "ERR_501_PROVIDER_FAILED"
	ErrCodeProviderTimeout = "ERR_502_PROVIDER_TIMEOUT"
	ErrCodeInternal        = "ERR_503_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryGateway
	case '4':
		return CategoryState
	case '5':
		if code == ErrCodeInternal {
			return CategoryInternal
		}
		return CategoryProvider
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreOpen, ErrCodeStoreSchema, ErrCodeStoreNoTxSupport:
		// The process cannot guarantee ranking correctness without persistence.
		return SeverityFatal
	case ErrCodeGatewayBind, ErrCodeGatewayTimeout, ErrCodeStoreWrite,
		ErrCodeProviderFailed, ErrCodeProviderTimeout:
		// Contained at their boundary, never unwind into the orchestrator.
		return SeverityWarning
	default:
		return SeverityError
	}
}
