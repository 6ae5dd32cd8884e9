package fault

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeSurvivesWrapping(t *testing.T) {
	base := New(CodeEmptyResult, "no rows match year %d", 1999)
	wrapped := fmt.Errorf("stage extract: %w", base)

	assert.Equal(t, CodeEmptyResult, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeEmptyResult))
	assert.False(t, IsCode(wrapped, CodeInvalidSchema))
}

func TestWrapKeepsCauseChain(t *testing.T) {
	err := Wrap(CodeSourceUnavailable, os.ErrNotExist, "open %s", "housing.csv")

	require.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, CodeSourceUnavailable, CodeOf(err))
	assert.Contains(t, err.Error(), "housing.csv")
	assert.Contains(t, err.Error(), string(CodeSourceUnavailable))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}
