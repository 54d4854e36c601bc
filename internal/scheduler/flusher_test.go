package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlusher_FlushOnStart(t *testing.T) {
	var runs atomic.Int32
	f := NewFlusher(func() { runs.Add(1) })

	require.NoError(t, f.Start(Config{Schedule: "@every 1h", OnStart: true}))
	defer f.Stop()

	require.Equal(t, int32(1), runs.Load())
	require.Equal(t, "@every 1h", f.Schedule())
	require.WithinDuration(t, time.Now().Add(time.Hour), f.NextRun(), time.Minute)
}

func TestFlusher_RunsOnSchedule(t *testing.T) {
	ran := make(chan struct{}, 4)
	f := NewFlusher(func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})

	require.NoError(t, f.Start(Config{Schedule: "@every 1s"}))
	defer f.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled flush did not run")
	}
}

func TestFlusher_DefaultSchedule(t *testing.T) {
	f := NewFlusher(func() {})
	require.NoError(t, f.Start(Config{}))
	defer f.Stop()

	require.Equal(t, DefaultSchedule, f.Schedule())
}

func TestFlusher_InvalidSchedule(t *testing.T) {
	f := NewFlusher(func() {})
	require.Error(t, f.Start(Config{Schedule: "whenever"}))
	require.True(t, f.NextRun().IsZero())
}

func TestFlusher_StartTwice(t *testing.T) {
	f := NewFlusher(func() {})
	require.NoError(t, f.Start(Config{Schedule: "@hourly"}))
	defer f.Stop()

	require.Error(t, f.Start(Config{Schedule: "@hourly"}))
}

func TestFlusher_Reschedule(t *testing.T) {
	f := NewFlusher(func() {})
	require.NoError(t, f.Start(Config{Schedule: "@every 1h"}))
	defer f.Stop()

	require.Error(t, f.Reschedule("not a schedule", ""))
	require.Equal(t, "@every 1h", f.Schedule())

	require.Error(t, f.Reschedule("@every 10m", "Mars/Olympus_Mons"))
	require.Equal(t, "@every 1h", f.Schedule())
	require.Equal(t, "Local", f.Timezone())

	require.NoError(t, f.Reschedule("@every 10m", ""))
	require.Equal(t, "@every 10m", f.Schedule())
	require.WithinDuration(t, time.Now().Add(10*time.Minute), f.NextRun(), time.Minute)
}

func TestFlusher_RescheduleBeforeStart(t *testing.T) {
	f := NewFlusher(func() {})
	require.Error(t, f.Reschedule("@hourly", "UTC"))
}

func TestFlusher_Timezone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	f := NewFlusher(func() {})
	require.NoError(t, f.Start(Config{Schedule: "0 3 * * *", Timezone: "Asia/Tokyo"}))
	defer f.Stop()

	require.Equal(t, "Asia/Tokyo", f.Timezone())
	next := f.NextRun().In(tokyo)
	require.Equal(t, 3, next.Hour())
	require.Equal(t, 0, next.Minute())

	require.NoError(t, f.Reschedule("0 3 * * *", "UTC"))
	next = f.NextRun().In(time.UTC)
	require.Equal(t, 3, next.Hour())
	require.Equal(t, "UTC", f.Timezone())
}

func TestFlusher_InvalidTimezone(t *testing.T) {
	f := NewFlusher(func() {})
	require.Error(t, f.Start(Config{Schedule: "@hourly", Timezone: "Nowhere/Special"}))
	require.True(t, f.NextRun().IsZero())
}

func TestFlusher_StopIdempotent(t *testing.T) {
	f := NewFlusher(func() {})
	f.Stop()

	require.NoError(t, f.Start(Config{Schedule: "@hourly"}))
	f.Stop()
	f.Stop()
}
