package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	plain := New(ErrKindInvalidInput, "column has no name")
	assert.Equal(t, "[invalid_input] column has no name", plain.Error())

	wrapped := Wrap(ErrKindNotFound, "failed to get object", errors.New("NoSuchKey"))
	assert.Equal(t, "[not_found] failed to get object: NoSuchKey", wrapped.Error())
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"not found", New(ErrKindNotFound, "x"), IsNotFound},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout},
		{"connection", New(ErrKindConnectionFailed, "x"), IsConnectionFailed},
		{"query", New(ErrKindQueryFailed, "x"), IsQueryFailed},
		{"invalid input", New(ErrKindInvalidInput, "x"), IsInvalidInput},
		{"permission", New(ErrKindPermissionDenied, "x"), IsPermissionDenied},
		{"unresolved", New(ErrKindUnresolvedReference, "x"), IsUnresolvedReference},
		{"cyclic", New(ErrKindCyclicReference, "x"), IsCyclicReference},
		{"usage", New(ErrKindUsage, "x"), IsUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
			assert.True(t, tt.pred(fmt.Errorf("outer: %w", tt.err)), "predicate must see through wrapping")
		})
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
	assert.False(t, IsInvalidInput(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(ErrKindQueryFailed, "boom", cause)
	assert.ErrorIs(t, err, cause)
}

func TestErrKind_String(t *testing.T) {
	assert.Equal(t, "cyclic_reference", ErrKindCyclicReference.String())
	assert.Equal(t, "unknown", ErrKind(99).String())
}
