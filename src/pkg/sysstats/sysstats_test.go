package sysstats

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	stats, err := Collect(context.Background(), dir)
	require.NoError(t, err)

	require.NotNil(t, stats.Self)
	assert.Equal(t, int32(os.Getpid()), stats.Self.PID)
	assert.NotZero(t, stats.Self.RSS)
	assert.NotZero(t, stats.Runtime.Sys)
	assert.Positive(t, stats.Runtime.Goroutines)
	assert.NotNil(t, stats.Children)

	require.NotNil(t, stats.Disk)
	assert.Equal(t, dir, stats.Disk.Path)
	assert.NotZero(t, stats.Disk.Total)
}

func TestCollectWithoutPath(t *testing.T) {
	stats, err := Collect(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, stats.Disk)
}
