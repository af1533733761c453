package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: true})
	assert.Error(t, err)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, ratio(0))
	assert.Equal(t, 1.0, ratio(3))
	assert.Equal(t, 0.25, ratio(0.25))
}
