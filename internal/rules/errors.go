package rules

import (
	"errors"
	"fmt"
)

// Custom error types for better categorization
const (
	// ErrInvalidConfig represents validation errors in rule configuration
	ErrInvalidConfig = "invalid_config"

	// ErrCheckFailed represents errors while evaluating a rule against a cluster
	ErrCheckFailed = "check_failed"
)

// RuleError represents an error that occurred while building or evaluating
// a conformity rule, with additional context about what went wrong.
type RuleError struct {
	// Category helps with programmatic error handling
	Category string

	// Message provides human-readable details
	Message string

	// Rule identifies which rule raised the error (if applicable)
	Rule string

	// Underlying is the wrapped cause of this error
	Underlying error
}

// Error returns the error message
func (e *RuleError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s: %s (rule: %s)", e.Category, e.Message, e.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap returns the underlying error (for errors.Is/As support)
func (e *RuleError) Unwrap() error {
	return e.Underlying
}

// NewRuleError creates a new error with the given category and details
func NewRuleError(category, message, rule string, underlying error) *RuleError {
	return &RuleError{
		Category:   category,
		Message:    message,
		Rule:       rule,
		Underlying: underlying,
	}
}

// IsErrorCategory checks if an error belongs to a specific error category
func IsErrorCategory(err error, category string) bool {
	if err == nil {
		return false
	}

	var e *RuleError
	if errors.As(err, &e) {
		return e.Category == category
	}

	return false
}
