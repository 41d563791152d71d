package lock

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockFailsFastWhenHeld(t *testing.T) {
	l := NewLocker()

	token, ok, err := l.TryLock("vial-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = l.TryLock("vial-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.TryLock("vial-2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release("vial-1", token))
	assert.False(t, l.Held("vial-1"))
}

func TestReleaseRequiresOwnerToken(t *testing.T) {
	l := NewLocker()
	token, _, _ := l.TryLock("vial-1")

	assert.ErrorIs(t, l.Release("vial-1", "someone-else"), ErrNotHolder)
	assert.True(t, l.Held("vial-1"))
	assert.NoError(t, l.Release("vial-1", token))
	assert.ErrorIs(t, l.Release("vial-1", token), ErrNotHolder)
}

func TestEmptyKey(t *testing.T) {
	_, _, err := NewLocker().TryLock("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestOnlyOneConcurrentHolder(t *testing.T) {
	l := NewLocker()
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok, _ := l.TryLock("vial-1"); ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}
