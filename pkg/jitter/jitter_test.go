package jitter

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationRange(t *testing.T) {
	for range 100 {
		d := Duration(time.Second, DefaultJitter)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestDurationWithSeedDeterministic(t *testing.T) {
	a := DurationWithSeed(time.Second, DefaultJitter, rand.New(rand.NewPCG(1, 2)))
	b := DurationWithSeed(time.Second, DefaultJitter, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, a, b)
}

func TestExponentialBackoffCapped(t *testing.T) {
	base, maxBackoff := 2*time.Second, 30*time.Second

	assert.Equal(t, base, ExponentialBackoff(base, maxBackoff, 0, 0))
	assert.Equal(t, 8*time.Second, ExponentialBackoff(base, maxBackoff, 2, 0))
	assert.Equal(t, maxBackoff, ExponentialBackoff(base, maxBackoff, 10, 0))
}

func TestBackoffNextAndReset(t *testing.T) {
	b := &Backoff{Base: time.Second, Max: 4 * time.Second}

	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 4, b.Attempt())

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}
