package backoff_test

import (
	"testing"
	"time"

	"github.com/marcelsud/sumit-gateway/backoff"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestExponential(t *testing.T) {
	t.Run("default schedule is ten to the power of attempt", func(t *testing.T) {
		s := backoff.Default()

		assert.Equal(t, int64(10), s.WaitSeconds(1))
		assert.Equal(t, int64(100), s.WaitSeconds(2))
		assert.Equal(t, int64(1000), s.WaitSeconds(3))
		assert.Equal(t, 10*time.Second, s.Wait(1))
	})

	t.Run("attempts below one are clamped", func(t *testing.T) {
		s := backoff.Exponential{Base: 10}

		assert.Equal(t, int64(10), s.WaitSeconds(0))
		assert.Equal(t, int64(10), s.WaitSeconds(-4))
	})

	t.Run("large attempts saturate", func(t *testing.T) {
		s := backoff.Exponential{Base: 10}

		assert.Equal(t, backoff.MaxWaitSeconds, s.WaitSeconds(50))
		assert.Equal(t, time.Duration(backoff.MaxWaitSeconds)*time.Second, s.Wait(1000))
	})
}

func TestExponential_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		attempt := rapid.IntRange(1, 5).Draw(t, "attempt")
		s := backoff.Default()

		want := int64(1)
		for i := 0; i < attempt; i++ {
			want *= 10
		}
		if got := s.WaitSeconds(attempt); got != want {
			t.Fatalf("WaitSeconds(%d) = %d, want %d", attempt, got, want)
		}
		if s.WaitSeconds(attempt+1) <= s.WaitSeconds(attempt) {
			t.Fatalf("schedule is not strictly increasing at attempt %d", attempt)
		}
	})
}

func TestLinear(t *testing.T) {
	s := backoff.Linear{Step: 30}

	assert.Equal(t, int64(30), s.WaitSeconds(1))
	assert.Equal(t, int64(90), s.WaitSeconds(3))
	assert.Equal(t, int64(30), s.WaitSeconds(0))
	assert.Equal(t, backoff.MaxWaitSeconds, s.WaitSeconds(1<<30))
}

func TestConstant(t *testing.T) {
	s := backoff.Constant{Seconds: 5}

	for _, attempt := range []int{-1, 1, 2, 100} {
		assert.Equal(t, 5*time.Second, s.Wait(attempt))
	}
	assert.Equal(t, int64(0), backoff.Constant{Seconds: -3}.WaitSeconds(1))
}
