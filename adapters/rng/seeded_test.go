package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draw(t *testing.T, name string, seed int64) []int {
	t.Helper()
	r, err := NewSeededAdapter().SeededStream(context.Background(), name, seed)
	require.NoError(t, err)
	return r.Perm(10)
}

func TestSeededStreamIsReproducible(t *testing.T) {
	assert.Equal(t, draw(t, "split", 42), draw(t, "split", 42))
	assert.NotEqual(t, draw(t, "split", 42), draw(t, "forest", 42))
	assert.NotEqual(t, draw(t, "split", 42), draw(t, "split", 43))
}

func TestSeededStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSeededAdapter().SeededStream(ctx, "split", 42)
	assert.Error(t, err)
}
