// Package mmdberrors defines the typed errors returned while opening and
// reading an MMDB file. Errors are grouped by kind (format violation,
// input, configuration) rather than by component, so callers can branch
// on errors.As regardless of which part of the reader produced them.
package mmdberrors

import (
	"fmt"
	"reflect"
)

// InvalidDatabaseError is returned when the database contains invalid data
// and cannot be parsed: format violations, corrupt search tree records, and
// metadata that fails its own invariants all surface as this type.
type InvalidDatabaseError struct {
	message string
}

// NewOffsetError reports a read that ran past the end of the buffer.
func NewOffsetError() InvalidDatabaseError {
	return InvalidDatabaseError{"unexpected end of database"}
}

// NewInvalidDatabaseError builds a formatted InvalidDatabaseError.
func NewInvalidDatabaseError(format string, args ...any) InvalidDatabaseError {
	return InvalidDatabaseError{fmt.Sprintf(format, args...)}
}

func (e InvalidDatabaseError) Error() string {
	return e.message
}

// UnmarshalTypeError is returned when the value in the database cannot be
// assigned to the specified data type during reflective decoding.
type UnmarshalTypeError struct {
	Type  reflect.Type
	Value string
}

// NewUnmarshalTypeStrError builds an UnmarshalTypeError from a pre-rendered
// value description.
func NewUnmarshalTypeStrError(value string, rType reflect.Type) UnmarshalTypeError {
	return UnmarshalTypeError{
		Type:  rType,
		Value: value,
	}
}

// NewUnmarshalTypeError builds an UnmarshalTypeError from an arbitrary
// decoded value.
func NewUnmarshalTypeError(value any, rType reflect.Type) UnmarshalTypeError {
	return NewUnmarshalTypeStrError(fmt.Sprintf("%v (%T)", value, value), rType)
}

func (e UnmarshalTypeError) Error() string {
	return fmt.Sprintf("mmdbreader: cannot unmarshal %s into type %s", e.Value, e.Type)
}

// InvalidInputError is returned for invalid caller input: looking up an
// address of a kind the database can't hold, such as an IPv6 address
// against an IPv4-only database.
type InvalidInputError struct {
	message string
}

// NewInvalidInputError builds a formatted InvalidInputError.
func NewInvalidInputError(format string, args ...any) InvalidInputError {
	return InvalidInputError{fmt.Sprintf(format, args...)}
}

func (e InvalidInputError) Error() string {
	return e.message
}

// ConfigError is returned when Open is given a file that cannot be used to
// construct a Reader: an empty file, or one too large to map into memory.
type ConfigError struct {
	message string
}

// NewConfigError builds a formatted ConfigError.
func NewConfigError(format string, args ...any) ConfigError {
	return ConfigError{fmt.Sprintf(format, args...)}
}

func (e ConfigError) Error() string {
	return e.message
}
