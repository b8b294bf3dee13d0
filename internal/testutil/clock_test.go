package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrozenClock_DefaultsToEpoch(t *testing.T) {
	clock := NewFrozenClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, clock.Now(), clock.Now())
}

func TestFrozenClock_Advance(t *testing.T) {
	start := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFrozenClock(start)

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, clock.Now().Sub(start))
}

func TestFrozenClock_ThreadSafe(t *testing.T) {
	clock := NewFrozenClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100*time.Millisecond, clock.Now().Sub(Epoch))
}
