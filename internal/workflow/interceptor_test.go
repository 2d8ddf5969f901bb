package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
)

func TestTypeActivityError_AddsActivityName(t *testing.T) {
	cause := errors.New("list active integrations: db down")
	err := typeActivityError("ListActiveIntegrations", cause)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "ListActiveIntegrations", appErr.Type())
	assert.ErrorIs(t, err, cause)
}

func TestTypeActivityError_KeepsExistingType(t *testing.T) {
	typed := temporal.NewApplicationError("bad config", "InvalidConfiguration")
	err := typeActivityError("TestIntegrationConnection", typed)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "InvalidConfiguration", appErr.Type())
}
