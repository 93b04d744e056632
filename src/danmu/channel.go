package danmu

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	bilisentry "github.com/bililive-go/shadowreplay/src/pkg/sentry"
)

var ErrChannelClosed = errors.New("danmu channel closed")

const (
	defaultBufferSize = 256
	maxBatch          = 64
	subscriberBuffer  = 32
)

// Channel 多个生产者写入，单个写协程按到达顺序落盘
type Channel struct {
	sink   Sink
	logger *logrus.Entry
	now    func() time.Time

	mu     sync.Mutex
	in     chan Entry
	closed bool
	last   time.Time

	done chan struct{}

	errMu sync.RWMutex
	err   error

	subMu      sync.Mutex
	subs       map[int]chan Entry
	subsClosed bool
	nextID     int
}

func NewChannel(sink Sink, bufferSize int, logger *logrus.Entry) *Channel {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = logrus.WithField("module", "danmu")
	}
	c := &Channel{
		sink:   sink,
		logger: logger,
		now:    time.Now,
		in:     make(chan Entry, bufferSize),
		done:   make(chan struct{}),
		subs:   make(map[int]chan Entry),
	}
	bilisentry.Go(c.run)
	return c
}

// Push 记录到达时间并入队，时间戳保证单调不减
func (c *Channel) Push(e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if err := c.Err(); err != nil {
		return err
	}
	ts := c.now()
	if ts.Before(c.last) {
		ts = c.last
	}
	c.last = ts
	e.Timestamp = ts
	c.in <- e
	c.broadcast(e)
	return nil
}

func (c *Channel) run() {
	defer close(c.done)
	batch := make([]Entry, 0, maxBatch)
	for e := range c.in {
		batch = append(batch[:0], e)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-c.in:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		if c.Err() != nil {
			continue
		}
		if err := c.sink.AppendDanmu(context.Background(), batch...); err != nil {
			c.logger.WithError(err).Error("弹幕写入失败，停止落盘")
			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()
		}
	}
}

// Close 等待缓冲中的弹幕全部写入后返回
func (c *Channel) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.in)
	}
	c.mu.Unlock()
	<-c.done

	c.subMu.Lock()
	c.subsClosed = true
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
	return c.Err()
}

// Err 返回导致落盘停止的错误
func (c *Channel) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

// Subscribe 订阅实时弹幕，消费过慢时丢弃
func (c *Channel) Subscribe() (<-chan Entry, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	ch := make(chan Entry, subscriberBuffer)
	if c.subsClosed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if s, ok := c.subs[id]; ok {
			close(s)
			delete(c.subs, id)
		}
	}
}

func (c *Channel) broadcast(e Entry) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
