package pagectx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	ctx := context.Background()

	_, ok := Location(ctx)
	require.False(t, ok)

	ctx = WithLocation(ctx, "https://example.com/jobs")
	href, ok := Location(ctx)
	require.True(t, ok)
	require.Equal(t, "https://example.com/jobs", href)
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, RequestID(ctx))

	ctx = WithRequestID(ctx, "req-123")
	require.Equal(t, "req-123", RequestID(ctx))
}
