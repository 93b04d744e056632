package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRotatingWriter(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	stale := filepath.Join(dir, "test-2024-04-01.log")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	w := newDailyRotatingWriter(dir, "test", 7)
	w.now = func() time.Time { return day }
	_, err := w.Write([]byte("first\n"))
	require.NoError(t, err)

	w.now = func() time.Time { return day.AddDate(0, 0, 1) }
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "test-2024-05-01.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(b))
	b, err = os.ReadFile(filepath.Join(dir, "test-2024-05-02.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(b))

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
