// Package jitter считает интервалы повторных попыток с разбросом,
// чтобы переподключения воркеров к Kafka и PostgreSQL не совпадали по времени.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter - стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

// Duration возвращает d с джиттером в диапазоне [d, d*(1+jitterFactor)].
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	return d + time.Duration(rand.Float64()*jitterFactor*float64(d))
}

// DurationWithSeed делает то же, что Duration, но с заданным генератором.
func DurationWithSeed(d time.Duration, jitterFactor float64, rng *rand.Rand) time.Duration {
	return d + time.Duration(rng.Float64()*jitterFactor*float64(d))
}

// ExponentialBackoff возвращает base*2^attempt, не больше max, с джиттером.
// attempt считается с нуля.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	return Duration(exponential(base, max, attempt), jitterFactor)
}

func exponential(base, max time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > max {
			return max
		}
	}
	return backoff
}

// Backoff хранит номер попытки между вызовами. Не потокобезопасен:
// каждый цикл переподключения держит свой экземпляр.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64

	attempt int
}

func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{Base: base, Max: max, Jitter: DefaultJitter}
}

// Next возвращает паузу перед очередной попыткой и увеличивает счётчик.
func (b *Backoff) Next() time.Duration {
	d := ExponentialBackoff(b.Base, b.Max, b.attempt, b.Jitter)
	b.attempt++
	return d
}

// Reset вызывается после успешной попытки.
func (b *Backoff) Reset() {
	b.attempt = 0
}

func (b *Backoff) Attempt() int {
	return b.attempt
}
