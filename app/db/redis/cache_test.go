package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWrapInCache(t *testing.T) {
	client := NewMockRedisClient()

	calls := 0
	cached := WrapInCache(client, "test-key", time.Minute, func() (string, error) {
		calls++
		return "expensive result", nil
	})

	value, err := cached()
	assert.NoError(t, err)
	assert.Equal(t, "expensive result", value)
	assert.Equal(t, 1, calls)

	value, err = cached()
	assert.NoError(t, err)
	assert.Equal(t, "expensive result", value)
	assert.Equal(t, 1, calls)
}

func TestWrapInCacheDoesNotCacheEmptyValue(t *testing.T) {
	client := NewMockRedisClient()

	calls := 0
	cached := WrapInCache(client, "empty-key", time.Minute, func() (string, error) {
		calls++
		return "", nil
	})

	_, err := cached()
	assert.NoError(t, err)
	_, err = cached()
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
