package domain

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionWindow(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	periods := CollectionWindow(2, 3)

	assert.Len(t, periods, 9)
	assert.Equal(t, Period{Year: 2022, Month: 1}, periods[0])
	assert.Equal(t, Period{Year: 2022, Month: 3}, periods[2])
	assert.Equal(t, Period{Year: 2023, Month: 1}, periods[3])
	assert.Equal(t, Period{Year: 2024, Month: 3}, periods[8])
}

func TestCollectionWindow_CurrentYearOnly(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	periods := CollectionWindow(0, 12)

	assert.Len(t, periods, 12)
	for i, p := range periods {
		assert.Equal(t, 2025, p.Year)
		assert.Equal(t, i+1, p.Month)
	}
}

func TestPause(t *testing.T) {
	fc := clockwork.NewFakeClock()
	done := make(chan error, 1)
	go func() { done <- Pause(context.Background(), fc, time.Second) }()

	require.NoError(t, fc.BlockUntilContext(context.Background(), 1))
	fc.Advance(time.Second)
	assert.NoError(t, <-done)
}

func TestPause_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Pause(ctx, clockwork.NewFakeClock(), time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, Pause(ctx, clockwork.NewFakeClock(), 0), context.Canceled)
}

func TestPause_ZeroReturnsImmediately(t *testing.T) {
	assert.NoError(t, Pause(context.Background(), clockwork.NewFakeClock(), 0))
}
