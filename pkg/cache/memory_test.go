package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier-ai/pkg/cache"
)

func Test_MemoryCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()

	require.NoError(t, c.SetEx(ctx, "canvas:abc", `{"name":"poster"}`, time.Minute))

	got, err := c.Get(ctx, "canvas:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"poster"}`, got)

	require.NoError(t, c.Del(ctx, "canvas:abc"))
	got, err = c.Get(ctx, "canvas:abc")
	require.NoError(t, err)
	assert.Empty(t, got)
}
