package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bililive-go/shadowreplay/src/live"
)

var (
	ErrStalled = errors.New("hls playlist stalled")
	ErrClosed  = errors.New("hls stream closed")
)

const (
	defaultStaleTimeout = 30 * time.Second
	minPollInterval     = 500 * time.Millisecond
	maxPlaylistSize     = 4 << 20
)

type Option func(*Stream)

func WithHeader(h http.Header) Option {
	return func(s *Stream) { s.header = h.Clone() }
}

// WithPollInterval 固定刷新间隔，不再根据 TARGETDURATION 推算
func WithPollInterval(d time.Duration) Option {
	return func(s *Stream) { s.fixedInterval = d }
}

func WithStaleTimeout(d time.Duration) Option {
	return func(s *Stream) { s.staleTimeout = d }
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *Stream) { s.logger = l }
}

// Stream 轮询 HLS 媒体播放列表并按顺序下载分片，实现 live.Stream
type Stream struct {
	client        *http.Client
	header        http.Header
	logger        *logrus.Entry
	mediaURL      *url.URL
	fixedInterval time.Duration
	staleTimeout  time.Duration

	queue       []Segment
	lastQueued  int64
	lastEmitted int64
	forceDisc   bool
	ended       bool
	interval    time.Duration
	lastPoll    time.Time
	staleSince  time.Time
	closed      atomic.Bool
}

var _ live.Stream = (*Stream)(nil)

// Open 打开播放列表，如果是 master 列表则选择码率最高的子流
func Open(ctx context.Context, client *http.Client, rawURL string, opts ...Option) (*Stream, error) {
	if client == nil {
		client = http.DefaultClient
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	s := &Stream{
		client:       client,
		header:       http.Header{},
		staleTimeout: defaultStaleTimeout,
		lastQueued:   -1,
		lastEmitted:  -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.WithField("module", "hls")
	}

	pl, err := s.fetchPlaylist(ctx, u)
	if err != nil {
		return nil, err
	}
	if pl.Master {
		v, _ := pl.BestVariant()
		if u, err = resolve(u, v.URI); err != nil {
			return nil, err
		}
		s.logger.Debugf("选择子流 %s (bandwidth %d)", u, v.Bandwidth)
		if pl, err = s.fetchPlaylist(ctx, u); err != nil {
			return nil, err
		}
		if pl.Master {
			return nil, ErrInvalidPlaylist
		}
	}
	s.mediaURL = u
	s.apply(pl)
	return s, nil
}

// Next 返回下一个分片，直播结束（EXT-X-ENDLIST 且队列耗尽）时返回 io.EOF
func (s *Stream) Next(ctx context.Context) (*live.Chunk, error) {
	for {
		if s.closed.Load() {
			return nil, ErrClosed
		}
		if len(s.queue) > 0 {
			seg := s.queue[0]
			data, err := s.fetchSegment(ctx, seg)
			if err != nil {
				var se *statusError
				if errors.As(err, &se) && se.code == http.StatusNotFound {
					// 分片已过期，跳过并标记不连续
					s.logger.Warnf("分片 %d 已不可用，跳过", seg.Sequence)
					s.queue = s.queue[1:]
					s.forceDisc = true
					continue
				}
				return nil, err
			}
			s.queue = s.queue[1:]
			disc := seg.Discontinuity || s.forceDisc ||
				(s.lastEmitted >= 0 && seg.Sequence != s.lastEmitted+1)
			s.forceDisc = false
			s.lastEmitted = seg.Sequence
			return &live.Chunk{
				Data:          data,
				Duration:      seg.Duration,
				Timestamp:     time.Now(),
				Sequence:      seg.Sequence,
				Discontinuity: disc,
			}, nil
		}
		if s.ended {
			return nil, io.EOF
		}
		if err := s.waitPoll(ctx); err != nil {
			return nil, err
		}
		pl, err := s.fetchPlaylist(ctx, s.mediaURL)
		if err != nil {
			return nil, err
		}
		before := s.lastQueued
		s.apply(pl)
		if s.lastQueued == before && !s.ended {
			if s.staleSince.IsZero() {
				s.staleSince = time.Now()
			} else if time.Since(s.staleSince) > s.staleTimeout {
				return nil, ErrStalled
			}
		} else {
			s.staleSince = time.Time{}
		}
	}
}

func (s *Stream) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Stream) apply(pl *Playlist) {
	s.lastPoll = time.Now()
	s.ended = pl.Ended
	switch {
	case s.fixedInterval > 0:
		s.interval = s.fixedInterval
	case pl.TargetDuration > 0:
		s.interval = time.Duration(pl.TargetDuration * float64(time.Second) / 2)
	default:
		s.interval = 2 * time.Second
	}
	if s.fixedInterval <= 0 && s.interval < minPollInterval {
		s.interval = minPollInterval
	}

	n := int64(len(pl.Segments))
	if n > 0 && s.lastQueued >= 0 && pl.Segments[n-1].Sequence+2*n < s.lastQueued {
		// 上游重新推流，序号从头开始
		s.logger.Warnf("媒体序号回退 %d -> %d", s.lastQueued, pl.MediaSequence)
		s.lastQueued = pl.MediaSequence - 1
		s.lastEmitted = -1
		s.forceDisc = true
	}
	for _, seg := range pl.Segments {
		if seg.Sequence > s.lastQueued {
			s.queue = append(s.queue, seg)
			s.lastQueued = seg.Sequence
		}
	}
}

func (s *Stream) waitPoll(ctx context.Context) error {
	wait := time.Until(s.lastPoll.Add(s.interval))
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.code, e.url)
}

func (s *Stream) get(ctx context.Context, u *url.URL, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header = s.header.Clone()
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", live.UserAgent())
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{url: u.String(), code: resp.StatusCode}
	}
	if limit > 0 {
		return io.ReadAll(io.LimitReader(resp.Body, limit))
	}
	return io.ReadAll(resp.Body)
}

func (s *Stream) fetchPlaylist(ctx context.Context, u *url.URL) (*Playlist, error) {
	data, err := s.get(ctx, u, maxPlaylistSize)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (s *Stream) fetchSegment(ctx context.Context, seg Segment) ([]byte, error) {
	u, err := resolve(s.mediaURL, seg.URI)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, u, 0)
}
