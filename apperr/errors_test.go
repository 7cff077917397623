package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(CodeDependency, cause, "geocode search")

	require.Error(t, err)
	assert.Equal(t, "geocode search: dial tcp: timeout", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, Retryable(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeInternal, nil, "nothing"))
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := New(CodeOutOfArea, "62.10 km from restaurant")
	outer := Wrap(CodeValidation, fmt.Errorf("resolve: %w", inner), "address")

	assert.True(t, HasCode(outer, CodeValidation))
	assert.True(t, HasCode(outer, CodeOutOfArea))
	assert.False(t, HasCode(outer, CodeDependency))
	assert.Equal(t, CodeValidation, CodeOf(outer))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Nil(t, as(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dependency", New(CodeDependency, "telegram send"), true},
		{"validation", New(CodeValidation, "empty image"), false},
		{"out of area", New(CodeOutOfArea, "62.10 km"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
