package expcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-intel/internal/errors"
)

func TestCacheBasicOperations(t *testing.T) {
	c := New[string, int](time.Minute, 0)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Set("b", 2)
	c.Set("c", 3)
	assert.Equal(t, 2, c.Len())
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Equal(t, time.Minute, c.TTL())
}

func TestCacheExpiry(t *testing.T) {
	c := New[string, string](30*time.Millisecond, time.Minute)
	c.Set("k", "v")

	_, ok := c.Get("k")
	require.True(t, ok)
	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

type channel string

func TestGetOrLoad(t *testing.T) {
	c := New[channel, string](time.Minute, 0)
	var calls atomic.Int32
	load := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "abc123", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "bloomberg", load)
			assert.NoError(t, err)
			assert.Equal(t, "abc123", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	v, err := c.GetOrLoad(context.Background(), "bloomberg", load)
	require.NoError(t, err)
	assert.Equal(t, "abc123", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[string, string](time.Minute, 0)
	boom := errors.New("boom")

	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("k")
	assert.False(t, ok)
}
