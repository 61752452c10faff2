package engine

import (
	"errors"
	"fmt"
)

// EvalError represents a contract violation detected during property
// evaluation. These are programmer-visible errors, not transient failures:
// the evaluator never swallows or retries them.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string

	// TypeName identifies the declaring type.
	TypeName string

	// Property identifies the property, when one is involved.
	Property string

	// Target identifies the instance (or type name for type scope).
	Target string
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeUnknownType indicates the type is not registered.
	ErrCodeUnknownType EvalErrorCode = "UNKNOWN_TYPE"

	// ErrCodeUnknownProperty indicates the name is not declared on the type.
	ErrCodeUnknownProperty EvalErrorCode = "UNKNOWN_PROPERTY"

	// ErrCodeImmutableWrite indicates a write to a stored let after
	// construction.
	ErrCodeImmutableWrite EvalErrorCode = "IMMUTABLE_WRITE"

	// ErrCodeImmutableContainer indicates a write through an immutable
	// value-handle.
	ErrCodeImmutableContainer EvalErrorCode = "IMMUTABLE_CONTAINER"

	// ErrCodeReadOnlyProperty indicates a write to a computed property
	// with no setter.
	ErrCodeReadOnlyProperty EvalErrorCode = "READ_ONLY_PROPERTY"

	// ErrCodeMissingRequiredValue indicates construction omitted a
	// non-defaulted, non-lazy stored value.
	ErrCodeMissingRequiredValue EvalErrorCode = "MISSING_REQUIRED_VALUE"

	// ErrCodeObserverDepth indicates re-entrant observer writes exceeded
	// the depth bound.
	ErrCodeObserverDepth EvalErrorCode = "OBSERVER_DEPTH"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	switch {
	case e.TypeName != "" && e.Property != "":
		return fmt.Sprintf("%s: %s (type=%s, property=%s)", e.Code, e.Message, e.TypeName, e.Property)
	case e.TypeName != "":
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.TypeName)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf extracts the EvalErrorCode from err, or "" when err is not an
// EvalError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) EvalErrorCode {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsUnknownProperty reports whether err is an unknown-property error.
func IsUnknownProperty(err error) bool { return CodeOf(err) == ErrCodeUnknownProperty }

// IsImmutableWrite reports whether err is a stored-let write error.
func IsImmutableWrite(err error) bool { return CodeOf(err) == ErrCodeImmutableWrite }

// IsImmutableContainer reports whether err is an immutable-handle error.
func IsImmutableContainer(err error) bool { return CodeOf(err) == ErrCodeImmutableContainer }

// IsReadOnlyProperty reports whether err is a read-only computed write error.
func IsReadOnlyProperty(err error) bool { return CodeOf(err) == ErrCodeReadOnlyProperty }

// IsMissingRequiredValue reports whether err is a construction seeding error.
func IsMissingRequiredValue(err error) bool { return CodeOf(err) == ErrCodeMissingRequiredValue }

// IsObserverDepth reports whether err is an observer re-entry bound error.
func IsObserverDepth(err error) bool { return CodeOf(err) == ErrCodeObserverDepth }

func newUnknownTypeError(typeName string) *EvalError {
	return &EvalError{
		Code:     ErrCodeUnknownType,
		Message:  "type is not registered",
		TypeName: typeName,
	}
}

func newUnknownPropertyError(typeName, property string) *EvalError {
	return &EvalError{
		Code:     ErrCodeUnknownProperty,
		Message:  "property is not declared on type",
		TypeName: typeName,
		Property: property,
	}
}

func newImmutableWriteError(typeName, property, target string) *EvalError {
	return &EvalError{
		Code:     ErrCodeImmutableWrite,
		Message:  "stored let rejects writes after construction",
		TypeName: typeName,
		Property: property,
		Target:   target,
	}
}

func newImmutableContainerError(typeName, property, target string) *EvalError {
	return &EvalError{
		Code:     ErrCodeImmutableContainer,
		Message:  "write through immutable container handle",
		TypeName: typeName,
		Property: property,
		Target:   target,
	}
}

func newReadOnlyPropertyError(typeName, property string) *EvalError {
	return &EvalError{
		Code:     ErrCodeReadOnlyProperty,
		Message:  "computed property has no setter",
		TypeName: typeName,
		Property: property,
	}
}

func newMissingRequiredValueError(typeName, property string) *EvalError {
	return &EvalError{
		Code:     ErrCodeMissingRequiredValue,
		Message:  "construction requires a value for non-defaulted stored property",
		TypeName: typeName,
		Property: property,
	}
}

func newObserverDepthError(typeName, property string, depth, maxDepth int) *EvalError {
	return &EvalError{
		Code:     ErrCodeObserverDepth,
		Message:  fmt.Sprintf("observer re-entry exceeded depth bound (%d > %d)", depth, maxDepth),
		TypeName: typeName,
		Property: property,
	}
}
