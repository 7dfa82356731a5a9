package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDisabledByDefault(t *testing.T) {
	require.NoError(t, Initialize(Config{}))
	l := Get(CategoryIngest)
	require.Nil(t, l.sugar, "logger should be a no-op when debug mode is off")
	// Should not panic even though nothing is written anywhere.
	l.Info("ignored %d", 1)
}

func TestDebugModeWritesCategoryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Config{
		DebugMode: true,
		Level:     "debug",
		Dir:       dir,
	}))

	Get(CategoryGraph).Info("cycle removal pass complete")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "graph")
}

func TestCategoryCanBeDisabledIndividually(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Config{
		DebugMode: true,
		Level:     "debug",
		Dir:       dir,
		Categories: map[string]bool{
			string(CategoryEmbed): false,
		},
	}))

	Get(CategoryEmbed).Info("should not be written")
	Get(CategoryDisambig).Info("should be written")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "disambig")
}

func TestTimerStopWithThreshold(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Config{DebugMode: true, Level: "debug", Dir: dir}))

	timer := StartTimer(CategoryPipeline, "pass1")
	time.Sleep(time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Hour)
	require.Greater(t, elapsed, time.Duration(0))

	path := filepath.Join(dir, firstLogFile(t, dir))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func firstLogFile(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	return entries[0].Name()
}
