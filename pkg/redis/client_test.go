package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Nothing listens on port 1, so every command fails at dial time.
func unreachable() *Client {
	return Wrap(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

func TestUnreachableErrorsAreNotMisses(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "pubsearch:x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMiss))

	n, err := c.FlushByPattern(ctx, "pubsearch:*")
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), `scan "pubsearch:*"`)

	assert.Error(t, c.Ping(ctx))
}
