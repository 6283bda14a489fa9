// Package errors provides structured error handling for the connector.
// It defines sentinel errors, exit codes, the dispatch error taxonomy, and
// helpers for adding context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes used by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input or unsupported chain/operation
	ExitConfig   = 3 // Missing or invalid configuration
	ExitNotFound = 4 // Resource not found
	ExitUpstream = 5 // Node, KMS, or other remote service failed
)

// ConnectorError is the structured error type for the connector.
type ConnectorError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *ConnectorError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ConnectorError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ConnectorError.
func (e *ConnectorError) Is(target error) bool {
	var t *ConnectorError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Detail returns a single detail value, or "" when absent.
func (e *ConnectorError) Detail(key string) string {
	if e.Details == nil {
		return ""
	}
	return e.Details[key]
}

// Sentinel errors.
var (
	ErrGeneral = &ConnectorError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &ConnectorError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &ConnectorError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrInvalidAddress = &ConnectorError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &ConnectorError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrNetworkError = &ConnectorError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitUpstream,
	}

	ErrConfigNotFound = &ConnectorError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitConfig,
	}

	ErrConfigInvalid = &ConnectorError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitConfig,
	}

	ErrUnknownConfigKey = &ConnectorError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}

	// Dispatch taxonomy.
	ErrUnsupportedChain = &ConnectorError{
		Code:     "UNSUPPORTED_CHAIN",
		Message:  "chain does not support this operation",
		ExitCode: ExitInput,
	}

	ErrNoNodeURL = &ConnectorError{
		Code:     "NO_NODE_URL",
		Message:  "no node url configured",
		ExitCode: ExitConfig,
	}

	ErrBuild = &ConnectorError{
		Code:     "BUILD_FAILED",
		Message:  "transaction could not be built",
		ExitCode: ExitInput,
	}

	ErrBroadcast = &ConnectorError{
		Code:     "BROADCAST_FAILED",
		Message:  "transaction broadcast failed",
		ExitCode: ExitUpstream,
	}

	ErrKMSStore = &ConnectorError{
		Code:     "KMS_STORE_FAILED",
		Message:  "pending signature could not be stored",
		ExitCode: ExitUpstream,
	}

	ErrKMSComplete = &ConnectorError{
		Code:     "KMS_COMPLETE_FAILED",
		Message:  "pending signature could not be completed",
		ExitCode: ExitUpstream,
	}

	ErrContractCall = &ConnectorError{
		Code:     "CONTRACT_CALL_FAILED",
		Message:  "contract call failed",
		ExitCode: ExitUpstream,
	}

	ErrNodeRead = &ConnectorError{
		Code:     "NODE_READ_FAILED",
		Message:  "node read failed",
		ExitCode: ExitUpstream,
	}

	ErrTransactionNotFound = &ConnectorError{
		Code:     "TRANSACTION_NOT_FOUND",
		Message:  "transaction not found",
		ExitCode: ExitNotFound,
	}

	ErrBlockNotFound = &ConnectorError{
		Code:     "BLOCK_NOT_FOUND",
		Message:  "block not found",
		ExitCode: ExitNotFound,
	}
)

// New creates a new ConnectorError with the given code and message.
func New(code, message string) *ConnectorError {
	return &ConnectorError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ce *ConnectorError
	if errors.As(err, &ce) {
		return &ConnectorError{
			Code:       ce.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ce.Message),
			Details:    ce.Details,
			Suggestion: ce.Suggestion,
			Cause:      err,
			ExitCode:   ce.ExitCode,
		}
	}

	return &ConnectorError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ce *ConnectorError
	if errors.As(err, &ce) {
		return &ConnectorError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    details,
			Suggestion: ce.Suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &ConnectorError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ce *ConnectorError
	if errors.As(err, &ce) {
		return &ConnectorError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    ce.Details,
			Suggestion: suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &ConnectorError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// classify builds a taxonomy error from a sentinel, its details and the cause.
// A cause that already carries the same code is returned untouched.
func classify(sentinel *ConnectorError, details map[string]string, cause error) error {
	if cause != nil && errors.Is(cause, sentinel) {
		return cause
	}
	return &ConnectorError{
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Details:  details,
		Cause:    cause,
		ExitCode: sentinel.ExitCode,
	}
}

// UnsupportedChain reports a missing (chain, operation) registration.
func UnsupportedChain(chain, operation string) error {
	return classify(ErrUnsupportedChain, map[string]string{
		"chain":     chain,
		"operation": operation,
	}, nil)
}

// NoNodeURL reports an empty node list for a chain.
func NoNodeURL(chain string) error {
	return classify(ErrNoNodeURL, map[string]string{"chain": chain}, nil)
}

// BuildFailed reports a builder rejection.
func BuildFailed(chain, operation string, cause error) error {
	return classify(ErrBuild, map[string]string{
		"chain":     chain,
		"operation": operation,
	}, cause)
}

// BroadcastFailed reports a node that rejected or failed to relay a transaction.
func BroadcastFailed(chain string, cause error) error {
	return classify(ErrBroadcast, map[string]string{"chain": chain}, cause)
}

// KMSStoreFailed reports a failure to persist a pending signature.
func KMSStoreFailed(chain string, cause error) error {
	return classify(ErrKMSStore, map[string]string{"chain": chain}, cause)
}

// KMSCompleteFailed reports a failure to mark a pending signature as broadcast.
func KMSCompleteFailed(txID string, cause error) error {
	return classify(ErrKMSComplete, map[string]string{"txId": txID}, cause)
}

// ContractCallFailed reports a failed read-only contract call.
func ContractCallFailed(chain, contract, method string, cause error) error {
	return classify(ErrContractCall, map[string]string{
		"chain":    chain,
		"contract": contract,
		"method":   method,
	}, cause)
}

// NodeReadFailed reports a node that failed a block or transaction read.
func NodeReadFailed(chain, operation, ref string, cause error) error {
	return classify(ErrNodeRead, map[string]string{
		"chain":     chain,
		"operation": operation,
		"ref":       ref,
	}, cause)
}

// TransactionNotFound reports a transaction unknown to the node.
func TransactionNotFound(chain, txID string) error {
	return classify(ErrTransactionNotFound, map[string]string{
		"chain": chain,
		"txId":  txID,
	}, nil)
}

// BlockNotFound reports a block unknown to the node.
func BlockNotFound(chain, hashOrHeight string) error {
	return classify(ErrBlockNotFound, map[string]string{
		"chain": chain,
		"block": hashOrHeight,
	}, nil)
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "GENERAL_ERROR"
}

// Details returns the details of the outermost ConnectorError in the chain.
func Details(err error) map[string]string {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
