package danmu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	delay   time.Duration
	failAt  int
}

func (s *memorySink) AppendDanmu(ctx context.Context, entries ...Entry) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.entries)+len(entries) >= s.failAt {
		return errors.New("disk full")
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *memorySink) snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func TestChannelPreservesArrivalOrder(t *testing.T) {
	sink := &memorySink{}
	c := NewChannel(sink, 8, nil)

	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, c.Push(Entry{UID: fmt.Sprint(p), Text: fmt.Sprint(i)}))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, c.Close())

	entries := sink.snapshot()
	require.Len(t, entries, producers*perProducer)

	// 同一生产者内的顺序不变，时间戳单调不减
	next := map[string]int{}
	for i, e := range entries {
		assert.Equal(t, fmt.Sprint(next[e.UID]), e.Text)
		next[e.UID]++
		if i > 0 {
			assert.False(t, e.Timestamp.Before(entries[i-1].Timestamp))
		}
	}
}

func TestChannelClampsTimestamps(t *testing.T) {
	sink := &memorySink{}
	c := NewChannel(sink, 4, nil)
	base := time.Now()
	clock := []time.Time{base, base.Add(-time.Second), base.Add(time.Second)}
	c.mu.Lock()
	c.now = func() time.Time {
		ts := clock[0]
		clock = clock[1:]
		return ts
	}
	c.mu.Unlock()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Push(Entry{Text: fmt.Sprint(i)}))
	}
	require.NoError(t, c.Close())
	entries := sink.snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, base, entries[0].Timestamp)
	assert.Equal(t, base, entries[1].Timestamp)
	assert.Equal(t, base.Add(time.Second), entries[2].Timestamp)
}

func TestChannelCloseFlushes(t *testing.T) {
	sink := &memorySink{delay: 5 * time.Millisecond}
	c := NewChannel(sink, 64, nil)
	for i := 0; i < 50; i++ {
		require.NoError(t, c.Push(Entry{Text: fmt.Sprint(i)}))
	}
	require.NoError(t, c.Close())
	assert.Len(t, sink.snapshot(), 50)

	assert.ErrorIs(t, c.Push(Entry{Text: "late"}), ErrChannelClosed)
	// 重复关闭是安全的
	assert.NoError(t, c.Close())
}

func TestChannelSinkFailure(t *testing.T) {
	sink := &memorySink{failAt: 1}
	c := NewChannel(sink, 1, nil)
	require.NoError(t, c.Push(Entry{Text: "a"}))
	require.Eventually(t, func() bool { return c.Err() != nil }, time.Second, time.Millisecond)

	assert.Error(t, c.Push(Entry{Text: "b"}))
	assert.EqualError(t, c.Close(), "disk full")
}

func TestChannelSubscribe(t *testing.T) {
	c := NewChannel(&memorySink{}, 4, nil)
	ch, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.Push(Entry{Text: "hello"}))
	select {
	case e := <-ch:
		assert.Equal(t, "hello", e.Text)
	case <-time.After(time.Second):
		t.Fatal("no entry received")
	}

	require.NoError(t, c.Close())
	_, ok := <-ch
	assert.False(t, ok)

	late, _ := c.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
