package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fireRecorder collects coalescer fire invocations.
type fireRecorder struct {
	mu    sync.Mutex
	fires []string
	times []time.Time
}

func (f *fireRecorder) fire(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fires = append(f.fires, code)
	f.times = append(f.times, time.Now())
}

func (f *fireRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fires)
}

func waitForFires(t *testing.T, rec *fireRecorder, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if rec.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, want, rec.count(), "timed out waiting for fires")
}

func TestCoalescer_BurstFiresOnce(t *testing.T) {
	t.Parallel()

	rec := &fireRecorder{}
	c := NewCoalescer(60*time.Millisecond, rec.fire)
	defer c.Stop()

	// Several triggers inside one debounce window.
	for range 5 {
		c.ScheduleBroadcast("ROOMCODE")
		time.Sleep(5 * time.Millisecond)
	}
	lastTrigger := time.Now()
	require.True(t, c.Pending("ROOMCODE"))

	waitForFires(t, rec, 1, time.Second)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, rec.count(), "a burst must coalesce into exactly one fire")
	require.Equal(t, []string{"ROOMCODE"}, rec.fires)
	require.False(t, c.Pending("ROOMCODE"))

	// Trailing edge: the fire is timed from the last trigger, not the first.
	elapsed := rec.times[0].Sub(lastTrigger)
	require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestCoalescer_SeparateBurstsFireSeparately(t *testing.T) {
	t.Parallel()

	rec := &fireRecorder{}
	c := NewCoalescer(20*time.Millisecond, rec.fire)
	defer c.Stop()

	c.ScheduleBroadcast("ROOMCODE")
	waitForFires(t, rec, 1, time.Second)

	c.ScheduleBroadcast("ROOMCODE")
	waitForFires(t, rec, 2, time.Second)
	require.Equal(t, 2, rec.count())
}

func TestCoalescer_SessionsDebounceIndependently(t *testing.T) {
	t.Parallel()

	rec := &fireRecorder{}
	c := NewCoalescer(20*time.Millisecond, rec.fire)
	defer c.Stop()

	c.ScheduleBroadcast("ROOMALPHA")
	c.ScheduleBroadcast("ROOMBRAVO")
	waitForFires(t, rec, 2, time.Second)

	rec.mu.Lock()
	fired := map[string]bool{}
	for _, code := range rec.fires {
		fired[code] = true
	}
	rec.mu.Unlock()
	require.True(t, fired["ROOMALPHA"])
	require.True(t, fired["ROOMBRAVO"])
}

func TestCoalescer_RearmAroundExpiryFiresOnce(t *testing.T) {
	t.Parallel()

	rec := &fireRecorder{}
	c := NewCoalescer(2*time.Millisecond, rec.fire)
	defer c.Stop()

	// Hammer re-arms right around timer expiry so stale expiry callbacks
	// race fresh schedules for the pending entry. A superseded callback
	// must leave the newer timer's entry alone.
	for range 200 {
		c.ScheduleBroadcast("ROOMCODE")
		time.Sleep(time.Duration(time.Now().UnixNano()%4) * time.Millisecond)
	}

	// Quiesce, then verify the map is still coherent: one schedule, one fire.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && c.Pending("ROOMCODE") {
		time.Sleep(5 * time.Millisecond)
	}
	require.False(t, c.Pending("ROOMCODE"))

	settled := rec.count()
	c.ScheduleBroadcast("ROOMCODE")
	waitForFires(t, rec, settled+1, time.Second)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, settled+1, rec.count(), "a single trigger must fire exactly once")
}

func TestCoalescer_FlushFiresImmediately(t *testing.T) {
	t.Parallel()

	rec := &fireRecorder{}
	c := NewCoalescer(10*time.Second, rec.fire)
	defer c.Stop()

	c.ScheduleBroadcast("ROOMCODE")
	require.True(t, c.Pending("ROOMCODE"))

	c.Flush("ROOMCODE")
	require.Equal(t, 1, rec.count())
	require.False(t, c.Pending("ROOMCODE"))

	// Flush with nothing pending is a no-op.
	c.Flush("ROOMCODE")
	require.Equal(t, 1, rec.count())
}

func TestCoalescer_StopCancelsPending(t *testing.T) {
	t.Parallel()

	rec := &fireRecorder{}
	c := NewCoalescer(30*time.Millisecond, rec.fire)

	c.ScheduleBroadcast("ROOMCODE")
	c.Stop()
	require.False(t, c.Pending("ROOMCODE"))

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, 0, rec.count())
}

func TestCoalescer_FireErrorDoesNotBlockRescheduling(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	c := NewCoalescer(10*time.Millisecond, func(code string) {
		mu.Lock()
		calls++
		mu.Unlock()
		// A broadcast that goes sideways must not leave a stuck timer.
	})
	defer c.Stop()

	c.ScheduleBroadcast("ROOMCODE")
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	c.ScheduleBroadcast("ROOMCODE")
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("second schedule never fired")
}
