package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "grant-aggregator", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
