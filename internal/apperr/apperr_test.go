package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassOf(t *testing.T) {
	err := New(ClassNotFound, "user missing")
	assert.Equal(t, ClassNotFound, ClassOf(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}

func TestClassSurvivesWrapping(t *testing.T) {
	inner := New(ClassAuthorizationDenied, "forbidden")
	outer := fmt.Errorf("create access key: %w", inner)
	assert.True(t, IsAuthorizationDenied(outer))
}

func TestUntypedErrorIsUnavailable(t *testing.T) {
	assert.Equal(t, ClassUnavailable, ClassOf(errors.New("connection reset")))
	assert.False(t, IsNotFound(nil))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(ClassUnavailable, nil, "noop"))
}

func TestErrorString(t *testing.T) {
	err := Wrap(ClassConflict, errors.New("EntityAlreadyExists"), "create policy")
	assert.Equal(t, "create policy: EntityAlreadyExists", err.Error())
}
