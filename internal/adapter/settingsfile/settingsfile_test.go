package settingsfile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadSettings_MissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "settings.toml"), discardLogger())
	got, err := s.ReadSettings(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("military_time = true\ndate_format = \"DD/MM/YYYY\"\n"), 0o600))

	got, err := New(path, discardLogger()).ReadSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"military_time": true, "date_format": "DD/MM/YYYY"}, got)
}

func TestReadSettings_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("military_time = = true"), 0o600))

	_, err := New(path, discardLogger()).ReadSettings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse settings file")
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	s := New(path, discardLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveSettings(ctx, map[string]any{"clock_divider": ".", "military_time": false}))

	got, err := s.ReadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"clock_divider": ".", "military_time": false}, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestWatch_AppliesExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s := New(path, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	applied := make(chan map[string]any, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(_ context.Context, m map[string]any) { applied <- m })
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	// The watcher registers asynchronously; keep editing until it reports.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("show_ampm = \"small\"\n"), 0o600)
		select {
		case m := <-applied:
			return assert.Equal(t, "small", m["show_ampm"])
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatch_IgnoresOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s := New(path, discardLogger())
	settings := map[string]any{"military_time": true}
	require.NoError(t, s.SaveSettings(context.Background(), settings))

	applied := make(chan map[string]any, 1)
	s.reload(context.Background(), func(_ context.Context, m map[string]any) { applied <- m })
	assert.Empty(t, applied)

	require.NoError(t, os.WriteFile(path, []byte("military_time = false\n"), 0o600))
	s.reload(context.Background(), func(_ context.Context, m map[string]any) { applied <- m })
	require.Len(t, applied, 1)
	assert.Equal(t, false, (<-applied)["military_time"])
}
