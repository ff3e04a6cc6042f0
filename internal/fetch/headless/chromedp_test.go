package headless

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_RejectsNegativeParallel(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1})
	require.Error(t, err)
}

func TestFetch_CanceledContextAbortsBeforeNavigation(t *testing.T) {
	t.Parallel()

	engine, err := New(Config{MaxParallel: 1})
	require.NoError(t, err)
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Fetch(ctx, "https://example.com/")
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAcquire_TimesOutWhenSlotsAreBusy(t *testing.T) {
	t.Parallel()

	engine, err := New(Config{MaxParallel: 1})
	require.NoError(t, err)
	defer engine.Close()

	engine.limiter <- struct{}{}
	defer engine.release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = engine.acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
