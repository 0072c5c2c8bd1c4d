// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/hex"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/auditchain/internal/errors"
)

var (
	// chainIDRegex restricts chain identifiers to a URL- and log-safe charset.
	chainIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// ChainID validates a chain identifier: non-empty, at most 255 characters, and
// limited to letters, digits, dots, underscores, and hyphens.
var ChainID = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_chain_id_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	if len(s) > 255 {
		return validation.NewError("validation_chain_id_length", "must be at most 255 characters")
	}
	if !chainIDRegex.MatchString(s) {
		return validation.NewError(
			"validation_chain_id_charset",
			"must contain only letters, digits, dots, underscores, and hyphens",
		)
	}
	return nil
})

// HexHash validates a hex-encoded SHA-256 digest (64 hex characters).
var HexHash = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_hex_hash_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return validation.NewError("validation_hex_hash", "must be valid hex-encoded data")
	}
	if len(decoded) != 32 {
		return validation.NewError("validation_hex_hash_size", "must decode to exactly 32 bytes")
	}
	return nil
})

// NoWhitespace validates that string doesn't contain leading/trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
