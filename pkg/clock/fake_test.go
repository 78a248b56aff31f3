package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritrail/veritrail/pkg/clock"
)

func TestFake_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)

	assert.Equal(t, start, fake.Now())

	fake.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), fake.Now())

	fake.Set(start)
	assert.Equal(t, start, fake.Now())
}

func TestFake_StepAutoAdvances(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	fake.Step = time.Minute

	assert.Equal(t, start, fake.Now())
	assert.Equal(t, start.Add(time.Minute), fake.Now())
	assert.Equal(t, start.Add(2*time.Minute), fake.Now())
}

func TestFake_TickerFiresOnTick(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)

	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	select {
	case <-ticker.C():
		t.Fatal("ticker fired without a Tick call")
	default:
	}

	fake.Tick()
	select {
	case got := <-ticker.C():
		assert.Equal(t, start, got)
	default:
		t.Fatal("ticker did not fire")
	}

	// A stopped ticker stays silent.
	ticker.Stop()
	fake.Tick()
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestRealClock_NowIsUTC(t *testing.T) {
	c := clock.New()
	now := c.Now()
	require.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Minute)
}
