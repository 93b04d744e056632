package livelogger

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	applog "github.com/bililive-go/shadowreplay/src/log"
	bilisentry "github.com/bililive-go/shadowreplay/src/pkg/sentry"
)

// DefaultBufferSize 默认日志缓冲区大小（64KB）
const DefaultBufferSize = 64 * 1024

type liveLoggerKey struct{}

var hookOnce sync.Once

// LogCallback 每产生一行直播间日志时调用，key 形如 bilibili/123
type LogCallback func(key string, line string)

var (
	logCallbackMu sync.RWMutex
	logCallback   LogCallback
)

func SetLogCallback(cb LogCallback) {
	logCallbackMu.Lock()
	defer logCallbackMu.Unlock()
	logCallback = cb
}

func getLogCallback() LogCallback {
	logCallbackMu.RLock()
	defer logCallbackMu.RUnlock()
	return logCallback
}

// liveLogHook 通过 entry.Context 找到日志所属的 LiveLogger 并写入其缓冲区
type liveLogHook struct{}

func (h *liveLogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *liveLogHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}
	logger, ok := entry.Context.Value(liveLoggerKey{}).(*LiveLogger)
	if !ok || logger == nil {
		return nil
	}
	formatted, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return nil
	}
	logger.write(formatted)
	return nil
}

// ringBuffer 固定大小的环形缓冲区，写满后覆盖最早的数据
type ringBuffer struct {
	buf  []byte
	pos  int
	full bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{buf: make([]byte, size)}
}

func (rb *ringBuffer) Write(p []byte) {
	size := len(rb.buf)
	if len(p) >= size {
		copy(rb.buf, p[len(p)-size:])
		rb.pos = 0
		rb.full = true
		return
	}
	n := copy(rb.buf[rb.pos:], p)
	if n < len(p) {
		rb.pos = copy(rb.buf, p[n:])
		rb.full = true
		return
	}
	rb.pos += n
	if rb.pos == size {
		rb.pos = 0
		rb.full = true
	}
}

func (rb *ringBuffer) String() string {
	if !rb.full {
		return string(rb.buf[:rb.pos])
	}
	var sb strings.Builder
	sb.Grow(len(rb.buf))
	sb.Write(rb.buf[rb.pos:])
	sb.Write(rb.buf[:rb.pos])
	return sb.String()
}

// LiveLogger 每个直播间专属的日志记录器，嵌入 logrus.Entry，
// 最近的日志同时保留在内存缓冲区中供接口查询
type LiveLogger struct {
	*logrus.Entry
	mu     sync.RWMutex
	buffer *ringBuffer
	key    string
}

// New 创建 LiveLogger，bufferSize <= 0 时使用默认值
func New(bufferSize int, platform, roomID string) *LiveLogger {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	l := &LiveLogger{
		buffer: newRingBuffer(bufferSize),
		key:    platform + "/" + roomID,
	}
	ctx := context.WithValue(context.Background(), liveLoggerKey{}, l)
	l.Entry = applog.GetLogger().WithContext(ctx).WithFields(logrus.Fields{
		"platform": platform,
		"room":     roomID,
	})
	hookOnce.Do(func() {
		applog.GetLogger().AddHook(&liveLogHook{})
	})
	return l
}

func (l *LiveLogger) write(data []byte) {
	l.mu.Lock()
	l.buffer.Write(data)
	l.mu.Unlock()

	if cb := getLogCallback(); cb != nil {
		line := strings.TrimSuffix(string(data), "\n")
		key := l.key
		bilisentry.Go(func() { cb(key, line) })
	}
}

func (l *LiveLogger) Key() string {
	return l.key
}

// GetLogs 返回缓冲区中的日志文本
func (l *LiveLogger) GetLogs() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buffer.String()
}
