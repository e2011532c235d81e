package keeper

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSchedulesTokenJob(t *testing.T) {
	st := store.NewMemory()
	app := reddit.NewAppTokenSource("id", "secret", "https://www.reddit.com", st, nil)

	k, err := New(app, st, testLogger())
	require.NoError(t, err)
	defer k.Stop() //nolint:errcheck

	// The memory store expires keys itself, so only the token job runs.
	assert.Len(t, k.cron.Jobs(), 1)
}

func TestNewSchedulesSweepForSQLite(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	app := reddit.NewAppTokenSource("id", "secret", "https://www.reddit.com", st, nil)

	k, err := New(app, st, testLogger())
	require.NoError(t, err)
	defer k.Stop() //nolint:errcheck

	assert.Len(t, k.cron.Jobs(), 2)
}
