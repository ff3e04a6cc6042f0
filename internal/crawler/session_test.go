package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrontier_FIFOOrder(t *testing.T) {
	t.Parallel()

	f := newFrontier()
	require.True(t, f.push("https://example.com/a", 0))
	require.True(t, f.push("https://example.com/b", 1))
	require.True(t, f.push("https://example.com/c", 1))
	require.Equal(t, 3, f.len())

	first, ok := f.pop()
	require.True(t, ok)
	require.Equal(t, "https://example.com/a", first.url)
	require.Equal(t, 0, first.depth)

	second, ok := f.pop()
	require.True(t, ok)
	require.Equal(t, "https://example.com/b", second.url)

	third, ok := f.pop()
	require.True(t, ok)
	require.Equal(t, "https://example.com/c", third.url)

	_, ok = f.pop()
	require.False(t, ok)
}

func TestFrontier_RejectsQueuedDuplicates(t *testing.T) {
	t.Parallel()

	f := newFrontier()
	require.True(t, f.push("https://example.com/a", 0))
	require.False(t, f.push("https://example.com/a", 2))
	require.Equal(t, 1, f.len())
}

func TestVisitTracker(t *testing.T) {
	t.Parallel()

	v := newVisitTracker()
	require.False(t, v.Seen("https://example.com/a"))
	require.True(t, v.MarkIfNew("https://example.com/a"))
	require.True(t, v.Seen("https://example.com/a"))
	require.False(t, v.MarkIfNew("https://example.com/a"))
	require.False(t, v.MarkIfNew(""))
}

func TestTimerPauseController_ZeroDelayReturnsImmediately(t *testing.T) {
	t.Parallel()

	start := time.Now()
	timerPauseController{}.Pause(context.Background(), 0)
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTimerPauseController_CanceledContextUnblocks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	timerPauseController{}.Pause(ctx, time.Minute)
	require.Less(t, time.Since(start), time.Second)
}
