package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesFollowWrapping(t *testing.T) {
	base := New(ErrorTypeNotFound, "no value found by that name", nil)
	wrapped := fmt.Errorf("lookup: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsInvalidInput(wrapped))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))
}

func TestTypeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, TypeOf(fmt.Errorf("boom")))
	assert.False(t, IsStorage(fmt.Errorf("boom")))
}

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeStorage, "failed to save snapshot", fmt.Errorf("disk full"))
	assert.Equal(t, "STORAGE: failed to save snapshot (disk full)", err.Error())
	assert.Contains(t, err.Stack, "errors_test.go")
	assert.EqualError(t, err.Unwrap(), "disk full")
}

func TestRecoverError(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "string", value: "boom", want: "boom"},
		{name: "error", value: fmt.Errorf("bad"), want: "bad"},
		{name: "other", value: 42, want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RecoverError(tt.value)
			assert.True(t, IsInternal(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Nil(t, RecoverError(nil))
}
