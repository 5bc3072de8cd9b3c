package mmdberrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOffsetError(t *testing.T) {
	assert.Equal(t, "unexpected end of database", NewOffsetError().Error())
}

func TestNewInvalidDatabaseErrorFormats(t *testing.T) {
	err := NewInvalidDatabaseError("bad %s of %d", "size", 5)
	assert.Equal(t, "bad size of 5", err.Error())
}

func TestUnmarshalTypeErrorMessage(t *testing.T) {
	err := NewUnmarshalTypeError(uint64(5), nil)
	assert.Contains(t, err.Error(), "mmdbreader: cannot unmarshal")
}

func TestInvalidInputError(t *testing.T) {
	err := NewInvalidInputError("bad input: %d", 1)
	assert.Equal(t, "bad input: 1", err.Error())
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("bad config: %s", "x")
	assert.Equal(t, "bad config: x", err.Error())
}
