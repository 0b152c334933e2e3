package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, Is(e3, e2))
}

func TestErrorSentinel(t *testing.T) {
	sentinel := New("not found")
	wrapped := sentinel.Wrap(fmt.Errorf("backend says: 404"))

	// wrapping must not mutate the sentinel
	assert.Nil(t, sentinel.Unwrap())

	assert.True(t, Is(wrapped, sentinel))
	assert.EqualError(t, wrapped, "not found")

	var asErr *Error
	assert.True(t, As(wrapped, &asErr))
}

func TestErrorWrapMessage(t *testing.T) {
	e := New("outer").WrapMessage("inner")
	assert.EqualError(t, e.Unwrap(), "inner")
}
