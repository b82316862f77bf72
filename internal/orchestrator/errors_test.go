package orchestrator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestClassifyNotFound(t *testing.T) {
	apiErr := apierrors.NewNotFound(schema.GroupResource{Resource: "statefulsets"}, "mongo-c1")

	err := classify("get statefulset", apiErr)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestClassifyTransient(t *testing.T) {
	transients := []error{
		apierrors.NewServerTimeout(schema.GroupResource{Resource: "pods"}, "get", 1),
		apierrors.NewTimeoutError("request timed out", 1),
		apierrors.NewTooManyRequests("slow down", 1),
		apierrors.NewServiceUnavailable("apiserver draining"),
		apierrors.NewInternalError(errors.New("etcd hiccup")),
	}

	for _, cause := range transients {
		err := classify("list pods", cause)
		var transient *TransientError
		require.ErrorAs(t, err, &transient, "expected %v to classify as transient", cause)
		assert.Equal(t, "list pods", transient.Op)
	}
}

func TestClassifyPassesThroughOtherErrors(t *testing.T) {
	cause := apierrors.NewBadRequest("malformed spec")
	err := classify("create statefulset", cause)

	var transient *TransientError
	assert.False(t, errors.As(err, &transient))
	assert.False(t, IsNotFound(err))
	assert.ErrorContains(t, err, "create statefulset")
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, classify("noop", nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.True(t, IsNotFound(apierrors.NewNotFound(schema.GroupResource{}, "x")))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestTransientErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TransientError{Op: "get scale", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "get scale")
}
