package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bililive-go/shadowreplay/src/danmu"
	"github.com/bililive-go/shadowreplay/src/live"
)

var t0 = time.Date(2024, 1, 1, 20, 0, 0, 0, time.Local)

func newJournalForTest(t *testing.T) *Journal {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "bilibili", "123", "1704110400000")
	j, err := Create(dir, Meta{Platform: "bilibili", RoomID: "123", LiveID: "1704110400000", Title: "测试", StartTime: t0})
	require.NoError(t, err)
	t.Cleanup(func() { j.Release() })
	return j
}

func chunk(i int, dur float64, at time.Time) *live.Chunk {
	return &live.Chunk{Data: []byte(fmt.Sprintf("seg-%d", i)), Duration: dur, Timestamp: at}
}

func TestAppendSegmentsContiguous(t *testing.T) {
	j := newJournalForTest(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		seg, err := j.AppendSegment(ctx, chunk(i, 2, t0.Add(time.Duration(i)*2*time.Second)))
		require.NoError(t, err)
		assert.Equal(t, int64(i), seg.Sequence)
		assert.Equal(t, float64(i*2), seg.Offset)
		assert.False(t, seg.Discontinuity)
	}

	segs, err := j.Segments()
	require.NoError(t, err)
	require.Len(t, segs, 5)
	for i, seg := range segs {
		assert.Equal(t, int64(i), seg.Sequence)
		data, err := os.ReadFile(seg.Path)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("seg-%d", i), string(data))
		assert.Equal(t, FileName(int64(i)), filepath.Base(seg.Path))
	}

	matches, _ := filepath.Glob(filepath.Join(j.Dir(), "*.tmp"))
	assert.Empty(t, matches)

	info, err := j.Info()
	require.NoError(t, err)
	assert.Equal(t, 10.0, info.Length)
	assert.Equal(t, 5, info.SegmentCount)
	assert.False(t, info.Closed())
}

func TestDiscontinuityDetection(t *testing.T) {
	j := newJournalForTest(t)
	ctx := context.Background()

	_, err := j.AppendSegment(ctx, chunk(0, 2, t0))
	require.NoError(t, err)
	// 间隔 2s + 10s 以内视为连续
	seg, err := j.AppendSegment(ctx, chunk(1, 2, t0.Add(11*time.Second)))
	require.NoError(t, err)
	assert.False(t, seg.Discontinuity)
	// 超出容忍范围
	seg, err = j.AppendSegment(ctx, chunk(2, 2, t0.Add(30*time.Second)))
	require.NoError(t, err)
	assert.True(t, seg.Discontinuity)
	// 上游标记
	c := chunk(3, 2, t0.Add(32*time.Second))
	c.Discontinuity = true
	seg, err = j.AppendSegment(ctx, c)
	require.NoError(t, err)
	assert.True(t, seg.Discontinuity)
	assert.Equal(t, int64(3), seg.Sequence)
}

func TestBuildPlaylist(t *testing.T) {
	j := newJournalForTest(t)
	ctx := context.Background()
	_, err := j.AppendSegment(ctx, chunk(0, 2, t0))
	require.NoError(t, err)
	_, err = j.AppendSegment(ctx, chunk(1, 2.5, t0.Add(2*time.Second)))
	require.NoError(t, err)
	_, err = j.AppendSegment(ctx, chunk(2, 2, t0.Add(time.Minute)))
	require.NoError(t, err)

	pl, err := j.BuildPlaylist()
	require.NoError(t, err)
	assert.Equal(t, `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:3
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-PLAYLIST-TYPE:EVENT
#EXTINF:2.000,
000000.ts
#EXTINF:2.500,
000001.ts
#EXT-X-DISCONTINUITY
#EXTINF:2.000,
000002.ts
`, pl)

	again, err := j.BuildPlaylist()
	require.NoError(t, err)
	assert.Equal(t, pl, again)

	require.NoError(t, j.Close(t0.Add(2*time.Minute), "normal"))
	pl, err = j.BuildPlaylist()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(pl, "000002.ts\n#EXT-X-ENDLIST\n"))
	assert.NotContains(t, pl, "PLAYLIST-TYPE")
}

func TestClosedSessionRejectsAppends(t *testing.T) {
	j := newJournalForTest(t)
	ctx := context.Background()
	_, err := j.AppendSegment(ctx, chunk(0, 2, t0))
	require.NoError(t, err)

	end := t0.Add(2 * time.Second)
	require.NoError(t, j.Close(end, "user_stop"))
	require.NoError(t, j.Close(time.Now(), "normal"))

	_, err = j.AppendSegment(ctx, chunk(1, 2, t0.Add(2*time.Second)))
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, j.AppendDanmu(ctx, danmu.Entry{Text: "late"}), ErrSessionClosed)

	info, err := j.Info()
	require.NoError(t, err)
	assert.Equal(t, end.UnixMilli(), info.EndTime.UnixMilli())
	assert.Equal(t, "user_stop", info.EndReason)
	_, err = os.Stat(filepath.Join(j.Dir(), FileName(1)))
	assert.True(t, os.IsNotExist(err))
}

func TestReopenContinuesSequence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s")
	j, err := Create(dir, Meta{Platform: "huya", RoomID: "1", LiveID: "1", StartTime: t0})
	require.NoError(t, err)
	_, err = j.AppendSegment(context.Background(), chunk(0, 4, t0))
	require.NoError(t, err)
	require.NoError(t, j.Release())

	_, err = Create(dir, Meta{LiveID: "1"})
	assert.ErrorIs(t, err, ErrSessionExists)

	j, err = Open(dir)
	require.NoError(t, err)
	defer j.Release()
	seg, err := j.AppendSegment(context.Background(), chunk(1, 4, t0.Add(4*time.Second)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seg.Sequence)
	assert.Equal(t, 4.0, seg.Offset)

	_, err = Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConcurrentDanmuAndSegments(t *testing.T) {
	j := newJournalForTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := j.AppendSegment(ctx, chunk(i, 1, t0.Add(time.Duration(i)*time.Second)))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			assert.NoError(t, j.AppendDanmu(ctx, danmu.Entry{UID: "1", Sender: "a", Text: fmt.Sprint(i), Timestamp: t0.Add(time.Duration(i) * time.Millisecond)}))
		}
	}()
	wg.Wait()

	segs, err := j.Segments()
	require.NoError(t, err)
	assert.Len(t, segs, 20)
	entries, err := j.Danmu()
	require.NoError(t, err)
	require.Len(t, entries, 20)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprint(i), e.Text)
	}
}

func TestSegmentWriteFailure(t *testing.T) {
	j := newJournalForTest(t)
	_, err := j.AppendSegment(context.Background(), chunk(0, 2, t0))
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(j.Dir()))
	_, err = j.AppendSegment(context.Background(), chunk(1, 2, t0.Add(2*time.Second)))
	assert.ErrorIs(t, err, ErrSegmentWrite)
	assert.Equal(t, int64(0), j.LastSegment().Sequence)
}
