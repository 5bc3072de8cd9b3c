package mmdberrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapWithContextNilError(t *testing.T) {
	assert.NoError(t, WrapWithContext(nil, 5, nil))
}

func TestWrapWithContextNoTracker(t *testing.T) {
	err := WrapWithContext(errors.New("boom"), 5, nil)
	require.Error(t, err)
	assert.Equal(t, "at offset 5: boom", err.Error())
}

func TestWrapWithContextWithPathBuilder(t *testing.T) {
	pb := NewPathBuilder()
	pb.PrependMap("city")
	pb.PrependSlice(0)

	err := WrapWithContext(errors.New("boom"), 5, pb)
	require.Error(t, err)
	assert.Equal(t, "at offset 5, path /0/city: boom", err.Error())
}

func TestPathBuilderParseAndExtend(t *testing.T) {
	pb := NewPathBuilder()
	pb.ParseAndExtend("/country/iso_code")
	pb.PrependMap("record")
	assert.Equal(t, "/record/country/iso_code", pb.Build())
}

func TestPathBuilderEmpty(t *testing.T) {
	pb := NewPathBuilder()
	assert.Equal(t, "/", pb.Build())
}

func TestContextualErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	wrapped := WrapWithContext(inner, 0, nil)
	assert.ErrorIs(t, wrapped, inner)
}
