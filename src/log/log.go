package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/interfaces"
	bilisentry "github.com/bililive-go/shadowreplay/src/pkg/sentry"
)

const rotateBaseName = "shadowreplay"

var (
	stopDebugWatcher context.CancelFunc
	watcherMu        sync.Mutex
)

// New 根据当前配置初始化全局 logger，并在 Debug 开关变化时调整日志级别
func New(ctx context.Context) *interfaces.Logger {
	cfg := configs.GetCurrentConfig()
	if cfg == nil {
		cfg = configs.NewConfig()
	}
	writers := []io.Writer{os.Stderr}
	if w, err := fileWriters(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log output folder %s: %v\n", cfg.Log.OutPutFolder, err)
	} else {
		writers = append(writers, w...)
	}

	logrus.SetOutput(io.MultiWriter(writers...))
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	applyDebug(cfg.Debug)

	watcherMu.Lock()
	if stopDebugWatcher != nil {
		stopDebugWatcher()
	}
	watcherCtx, cancel := context.WithCancel(ctx)
	stopDebugWatcher = cancel
	watcherMu.Unlock()

	bilisentry.GoWithContext(watcherCtx, func(ctx context.Context) {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		prev := cfg.Debug
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if now := configs.IsDebug(); now != prev {
					applyDebug(now)
					prev = now
				}
			}
		}
	})

	return &interfaces.Logger{Logger: logrus.StandardLogger()}
}

func applyDebug(debug bool) {
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetReportCaller(debug)
}

func fileWriters(cfg configs.Log) ([]io.Writer, error) {
	if !cfg.SaveEveryLog && !cfg.SaveLastLog {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.OutPutFolder, 0755); err != nil {
		return nil, err
	}
	var writers []io.Writer
	if cfg.SaveEveryLog {
		runID := time.Now().Format("run-2006-01-02-15-04-05")
		f, err := os.OpenFile(filepath.Join(cfg.OutPutFolder, runID+".log"), os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}
	if cfg.SaveLastLog {
		// 启动时清理之前的滚动日志
		matches, _ := filepath.Glob(filepath.Join(cfg.OutPutFolder, rotateBaseName+"-*.log"))
		for _, f := range matches {
			_ = os.Remove(f)
		}
		writers = append(writers, newDailyRotatingWriter(cfg.OutPutFolder, rotateBaseName, cfg.RotateDays))
	}
	return writers, nil
}

// dailyRotatingWriter 按天切分日志文件，文件名形如 <base>-YYYY-MM-DD.log
type dailyRotatingWriter struct {
	dir           string
	base          string
	retentionDays int

	mu     sync.Mutex
	curDay string
	file   *os.File
	now    func() time.Time
}

func newDailyRotatingWriter(dir, base string, retentionDays int) *dailyRotatingWriter {
	return &dailyRotatingWriter{dir: dir, base: base, retentionDays: retentionDays, now: time.Now}
}

func (w *dailyRotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateLocked(w.now()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

func (w *dailyRotatingWriter) rotateLocked(now time.Time) error {
	day := now.Format("2006-01-02")
	if w.file != nil && day == w.curDay {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	f, err := os.OpenFile(filepath.Join(w.dir, w.base+"-"+day+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.curDay = day
	w.cleanupLocked(now)
	return nil
}

func (w *dailyRotatingWriter) cleanupLocked(now time.Time) {
	if w.retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -w.retentionDays)
	files, _ := filepath.Glob(filepath.Join(w.dir, w.base+"-*.log"))
	for _, f := range files {
		dateStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(f), w.base+"-"), ".log")
		if t, err := time.Parse("2006-01-02", dateStr); err == nil && t.Before(cutoff) {
			_ = os.Remove(f)
		}
	}
}

// GetLogger 返回全局唯一的 logrus Logger
func GetLogger() *logrus.Logger {
	return logrus.StandardLogger()
}

// WithFields 是对全局 Logger 的便捷封装
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logrus.StandardLogger().WithFields(fields)
}
