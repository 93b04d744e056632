//go:generate go run go.uber.org/mock/mockgen -package recorders -destination mock_test.go github.com/bililive-go/shadowreplay/src/recorders Recorder
package recorders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bililive-go/shadowreplay/src/archive"
	"github.com/bililive-go/shadowreplay/src/clip"
	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/danmu"
	"github.com/bililive-go/shadowreplay/src/database"
	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/live/credential"
	"github.com/bililive-go/shadowreplay/src/metrics"
	"github.com/bililive-go/shadowreplay/src/pkg/livelogger"
	bilisentry "github.com/bililive-go/shadowreplay/src/pkg/sentry"
	"github.com/bililive-go/shadowreplay/src/pkg/transcoder"
)

type Recorder interface {
	Platform() live.Platform
	RoomID() string
	// Run 阻塞直到 Stop 被调用或 ctx 结束，只能调用一次
	Run(ctx context.Context) error
	// Stop 等待进行中的写入完成、会话关闭后返回，可重复调用
	Stop()
	Info() *RecorderInfo
	State() State
	StartTime() time.Time
	Logs() string

	Archives() ([]*archive.SessionInfo, error)
	Archive(liveID string) (*archive.SessionInfo, error)
	DeleteArchive(liveID string) error
	Comments(liveID string) ([]danmu.Entry, error)
	M3U8Content(liveID string) (string, error)
	// SegmentPath 返回会话目录中的分片文件路径
	SegmentPath(liveID, name string) (string, error)
	ClipRange(ctx context.Context, liveID string, start, end float64, output string, progress transcoder.ProgressFunc) (string, error)
}

// RecordSink 录制记录的持久化，由 database.Store 实现
type RecordSink interface {
	AddRecord(ctx context.Context, platform, roomID, liveID, title string, start time.Time) (*database.Record, error)
	UpdateRecord(ctx context.Context, liveID string, length float64, size int64) error
	RemoveRecord(ctx context.Context, liveID string) error
}

type Config struct {
	Platform   live.Platform
	RoomID     string
	Credential *credential.Credential
	Adapter    live.Adapter
	Store      *archive.Store
	Clipper    *clip.Pipeline
	// Records 可以为空
	Records RecordSink

	Record       configs.Record
	Interval     time.Duration
	DanmuBuffer  int
	ClipNameTmpl string
	ClipOutput   string

	Logger *livelogger.LiveLogger
	// Metadata 添加直播间时已获取的信息，可以为空
	Metadata *live.RoomMetadata

	OnDanmu      func(platform live.Platform, roomID string, e danmu.Entry)
	OnSessionEnd func(info *archive.SessionInfo)
}

type recorder struct {
	cfg    Config
	logger *livelogger.LiveLogger

	state   uint32
	started atomic.Bool

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}

	// pinMu 读取当前会话时持读锁，会话释放前取写锁
	pinMu sync.RWMutex

	mu          sync.RWMutex
	meta        *live.RoomMetadata
	liveStatus  bool
	current     *archive.Journal
	liveID      string
	startTime   time.Time
	totalLength float64
	// sessionLength sessionSize 当前会话已写入的时长与字节数
	sessionLength float64
	sessionSize   int64
	lastRefresh   time.Time
}

func NewRecorder(cfg Config) (Recorder, error) {
	if cfg.Adapter == nil || cfg.Store == nil {
		return nil, errors.New("recorder requires an adapter and a store")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = livelogger.New(0, cfg.Platform.String(), cfg.RoomID)
	}
	r := &recorder{
		cfg:    cfg,
		logger: cfg.Logger,
		state:  uint32(StateIdle),
		done:   make(chan struct{}),
		meta:   cfg.Metadata,
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.recoverSessions()
	if total, err := cfg.Store.TotalLength(); err != nil {
		r.logger.WithError(err).Warn("读取历史录制时长失败")
	} else {
		r.totalLength = total
	}
	return r, nil
}

// recoverSessions 关闭上次运行中断的会话并更新录制记录
func (r *recorder) recoverSessions() {
	recovered, err := r.cfg.Store.RecoverUnclosed(EndReasonInterrupted)
	if err != nil {
		r.logger.WithError(err).Warn("检查中断的会话失败")
		return
	}
	for _, info := range recovered {
		r.logger.WithFields(logrus.Fields{
			"live_id":  info.LiveID,
			"end_time": info.EndTime.Format("2006-01-02 15:04:05"),
		}).Warn("已关闭上次中断的会话")
		metrics.SessionsTotal.WithLabelValues(r.cfg.Platform.String(), EndReasonInterrupted).Inc()
		if r.cfg.Records == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.cfg.Records.UpdateRecord(ctx, info.LiveID, info.Length, info.Size); err != nil {
			r.logger.WithError(err).WithField("live_id", info.LiveID).Warn("更新录制记录失败")
		}
		cancel()
	}
}

func (r *recorder) Platform() live.Platform {
	return r.cfg.Platform
}

func (r *recorder) RoomID() string {
	return r.cfg.RoomID
}

func (r *recorder) State() State {
	return State(atomic.LoadUint32(&r.state))
}

// setState 进入 Stopping 之后只有 Stop 能修改状态
func (r *recorder) setState(s State) {
	for {
		old := atomic.LoadUint32(&r.state)
		if State(old) >= StateStopping {
			return
		}
		if atomic.CompareAndSwapUint32(&r.state, old, uint32(s)) {
			if State(old) != s {
				r.logger.WithField("state", s.String()).Debug("状态变更")
			}
			return
		}
	}
}

func (r *recorder) StartTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startTime
}

func (r *recorder) Logs() string {
	return r.logger.GetLogs()
}

func (r *recorder) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(r.done)
	defer atomic.StoreUint32(&r.state, uint32(StateStopped))
	stop := context.AfterFunc(ctx, r.cancel)
	defer stop()

	ctx = r.ctx
	if ctx.Err() != nil {
		return nil
	}
	r.logger.Info("开始监控直播间")
	for {
		r.check(ctx)
		select {
		case <-ctx.Done():
			r.logger.Info("停止监控直播间")
			return nil
		case <-time.After(r.cfg.Interval):
		}
	}
}

func (r *recorder) Stop() {
	r.stopOnce.Do(func() {
		atomic.StoreUint32(&r.state, uint32(StateStopping))
		r.cancel()
	})
	if r.started.Load() {
		<-r.done
	}
	atomic.StoreUint32(&r.state, uint32(StateStopped))
}

// check 检测一次开播状态，开播时录制直到本场结束
func (r *recorder) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, r.cfg.Record.PollTimeout)
	isLive, err := r.cfg.Adapter.IsLive(pctx, r.cfg.RoomID)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			r.logger.WithError(err).Warn("获取直播状态失败")
		}
		return
	}
	r.mu.Lock()
	r.liveStatus = isLive
	r.mu.Unlock()
	if !isLive {
		return
	}
	r.record(ctx)
}

func (r *recorder) record(ctx context.Context) {
	r.setState(StateConnecting)
	defer r.setState(StateIdle)

	stream, first, err := r.connect(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.WithError(err).Warn("连接直播流失败，等待下次检测")
		}
		return
	}
	defer stream.Close()

	j, err := r.openSession(ctx)
	if err != nil {
		r.logger.WithError(err).Error("创建录制会话失败")
		return
	}
	r.setState(StateRecording)
	reason := r.capture(ctx, j, stream, first)
	r.closeSession(j, reason)
}

// connect 在 ConnectTimeout 内解析直播流并收到第一个分片
func (r *recorder) connect(ctx context.Context) (live.Stream, *live.Chunk, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.Record.ConnectTimeout)
	defer cancel()
	stream, err := r.cfg.Adapter.ResolveStream(cctx, r.cfg.RoomID, r.cfg.Credential)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve stream: %w", err)
	}
	first, err := stream.Next(cctx)
	if err != nil {
		stream.Close()
		return nil, nil, fmt.Errorf("first segment: %w", err)
	}
	return stream, first, nil
}

func (r *recorder) openSession(ctx context.Context) (*archive.Journal, error) {
	r.refreshMetadata(ctx)

	start := time.Now()
	liveID := strconv.FormatInt(start.UnixMilli(), 10)
	r.mu.RLock()
	var title string
	if r.meta != nil {
		title = r.meta.Title
	}
	r.mu.RUnlock()

	j, err := r.cfg.Store.Create(archive.Meta{
		Platform:  r.cfg.Platform.String(),
		RoomID:    r.cfg.RoomID,
		LiveID:    liveID,
		Title:     title,
		StartTime: start,
	})
	if err != nil {
		return nil, err
	}
	if r.cfg.Records != nil {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if _, err := r.cfg.Records.AddRecord(dctx, r.cfg.Platform.String(), r.cfg.RoomID, liveID, title, start); err != nil {
			r.logger.WithError(err).WithField("live_id", liveID).Warn("保存录制记录失败")
		}
		cancel()
	}

	r.mu.Lock()
	r.current = j
	r.liveID = liveID
	r.startTime = start
	r.sessionLength = 0
	r.sessionSize = 0
	r.mu.Unlock()
	r.logger.WithField("live_id", liveID).Info("开始录制")
	return j, nil
}

// capture 分片下载与弹幕接收并行进行，两者都退出后返回结束原因
func (r *recorder) capture(ctx context.Context, j *archive.Journal, stream live.Stream, first *live.Chunk) string {
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := danmu.NewChannel(j, r.cfg.DanmuBuffer, r.logger.Entry)
	if r.cfg.OnDanmu != nil {
		entries, _ := ch.Subscribe()
		bilisentry.Go(func() {
			for e := range entries {
				r.cfg.OnDanmu(r.cfg.Platform, r.cfg.RoomID, e)
			}
		})
	}

	reason := EndReasonNormal
	g, gctx := errgroup.WithContext(sessCtx)
	g.Go(func() error {
		defer bilisentry.Recover()
		defer cancel()
		var err error
		reason, err = r.segmentLoop(gctx, j, stream, first, ch)
		return err
	})
	g.Go(func() error {
		defer bilisentry.Recover()
		r.chatLoop(gctx, ch)
		return nil
	})
	if err := g.Wait(); err != nil {
		r.logger.WithError(err).WithField("reason", reason).Error("录制会话异常结束")
	}
	if err := ch.Close(); err != nil && reason != EndReasonWriteError {
		r.logger.WithError(err).Error("弹幕写入失败")
		reason = EndReasonWriteError
	}
	return reason
}

func (r *recorder) segmentLoop(ctx context.Context, j *archive.Journal, stream live.Stream, chunk *live.Chunk, ch *danmu.Channel) (string, error) {
	for {
		if err := r.appendSegment(ctx, j, chunk); err != nil {
			return EndReasonWriteError, err
		}
		if err := ch.Err(); err != nil {
			return EndReasonWriteError, err
		}
		if !r.maybeRefresh(ctx, j) {
			r.logger.Info("主播已下播")
			return EndReasonNormal, nil
		}

		next, err := r.fetch(ctx, stream)
		switch {
		case err == nil:
			chunk = next
		case errors.Is(err, io.EOF):
			r.logger.Info("直播流已结束")
			return EndReasonNormal, nil
		case ctx.Err() != nil:
			return EndReasonUserStop, nil
		case errors.Is(err, ErrTransientNetwork):
			return EndReasonRetryExhausted, nil
		default:
			return EndReasonError, err
		}
	}
}

// appendSegment 写入不受 ctx 取消影响，停止时进行中的分片会完整落盘
func (r *recorder) appendSegment(ctx context.Context, j *archive.Journal, chunk *live.Chunk) error {
	seg, err := j.AppendSegment(context.WithoutCancel(ctx), chunk)
	if err != nil {
		return err
	}
	if seg.Discontinuity {
		r.logger.WithField("seq", seg.Sequence).Warn("分片不连续")
	}
	r.mu.Lock()
	r.sessionLength = seg.Offset + seg.Duration
	r.sessionSize += seg.Size
	r.mu.Unlock()
	platform := r.cfg.Platform.String()
	metrics.SegmentsTotal.WithLabelValues(platform).Inc()
	metrics.SegmentBytesTotal.WithLabelValues(platform).Add(float64(seg.Size))
	return nil
}

// fetch 下载下一个分片，失败时按指数退避重试
func (r *recorder) fetch(ctx context.Context, stream live.Stream) (*live.Chunk, error) {
	retry := r.cfg.Record.Retry
	for attempt := 1; ; attempt++ {
		fctx, cancel := context.WithTimeout(ctx, r.cfg.Record.FetchTimeout)
		chunk, err := stream.Next(fctx)
		cancel()
		if err == nil {
			return chunk, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.SegmentFetchRetriesTotal.WithLabelValues(r.cfg.Platform.String()).Inc()
		if attempt >= retry.MaxAttempts {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"live_id":  r.currentLiveID(),
				"attempts": attempt,
			}).Error("分片下载重试次数用尽")
			return nil, fmt.Errorf("%w: %v", ErrTransientNetwork, err)
		}
		wait := retry.Backoff(attempt)
		r.logger.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt,
			"retry_in": wait.String(),
		}).Warn("分片下载失败，稍后重试")
		if !sleep(ctx, wait) {
			return nil, ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// refreshMetadata 获取失败时保留上一次的信息
func (r *recorder) refreshMetadata(ctx context.Context) *live.RoomMetadata {
	mctx, cancel := context.WithTimeout(ctx, r.cfg.Record.PollTimeout)
	defer cancel()
	meta, err := r.cfg.Adapter.FetchMetadata(mctx, r.cfg.RoomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRefresh = time.Now()
	if err != nil {
		if ctx.Err() == nil {
			r.logger.WithError(err).Warn("获取直播间信息失败")
		}
		return nil
	}
	r.meta = meta
	r.liveStatus = meta.Live
	return meta
}

// maybeRefresh 按间隔刷新直播间信息，返回 false 表示已下播
func (r *recorder) maybeRefresh(ctx context.Context, j *archive.Journal) bool {
	r.mu.RLock()
	due := time.Since(r.lastRefresh) >= r.cfg.Record.MetadataRefreshInterval
	r.mu.RUnlock()
	if !due {
		return true
	}
	meta := r.refreshMetadata(ctx)
	if meta == nil {
		return true
	}
	if err := j.SetTitle(meta.Title); err != nil {
		r.logger.WithError(err).Debug("更新会话标题失败")
	}
	return meta.Live
}

// chatLoop 弹幕连接断开后按退避时间重连，直到会话结束
func (r *recorder) chatLoop(ctx context.Context, ch *danmu.Channel) {
	failures := 0
	for ctx.Err() == nil {
		sub, err := r.cfg.Adapter.SubscribeChat(ctx, r.cfg.RoomID)
		if errors.Is(err, live.ErrNotSupported) {
			r.logger.Debug("平台不支持弹幕订阅")
			return
		}
		if err == nil {
			var received int
			received, err = r.consumeChat(ctx, sub, ch)
			sub.Close()
			if received > 0 {
				failures = 0
			}
			if ctx.Err() != nil || errors.Is(err, danmu.ErrChannelClosed) || ch.Err() != nil {
				return
			}
		}
		failures++
		wait := r.cfg.Record.Retry.Backoff(failures)
		r.logger.WithError(err).WithField("retry_in", wait.String()).Warn("弹幕连接断开，稍后重连")
		if !sleep(ctx, wait) {
			return
		}
	}
}

func (r *recorder) consumeChat(ctx context.Context, sub live.ChatSubscription, ch *danmu.Channel) (int, error) {
	counter := metrics.DanmuTotal.WithLabelValues(r.cfg.Platform.String())
	n := 0
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			return n, err
		}
		if err := ch.Push(danmu.FromEvent(ev)); err != nil {
			return n, err
		}
		n++
		counter.Inc()
	}
}

func (r *recorder) closeSession(j *archive.Journal, reason string) {
	end := time.Now()
	if reason == EndReasonWriteError {
		if last := j.LastSegment(); last != nil {
			end = last.Timestamp
		}
	}
	r.mu.RLock()
	liveID, length, size := r.liveID, r.sessionLength, r.sessionSize
	r.mu.RUnlock()
	logger := r.logger.WithFields(logrus.Fields{
		"live_id": liveID,
		"reason":  reason,
	})
	// 先保存最终时长，再关闭会话
	if r.cfg.Records != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.cfg.Records.UpdateRecord(ctx, liveID, length, size); err != nil {
			logger.WithError(err).Warn("更新录制记录失败")
		}
		cancel()
	}
	if err := j.Close(end, reason); err != nil {
		logger.WithError(err).Error("关闭录制会话失败")
	}
	info, err := j.Info()
	if err != nil {
		logger.WithError(err).Error("读取会话信息失败")
	}

	r.mu.Lock()
	if info != nil {
		r.totalLength += info.Length
	}
	r.current = nil
	r.sessionLength = 0
	r.sessionSize = 0
	r.mu.Unlock()
	r.pinMu.Lock()
	if err := j.Release(); err != nil {
		logger.WithError(err).Warn("释放会话数据库失败")
	}
	r.pinMu.Unlock()

	metrics.SessionsTotal.WithLabelValues(r.cfg.Platform.String(), reason).Inc()
	if info != nil {
		logger.WithField("length", info.Length).Info("录制结束")
		if r.cfg.OnSessionEnd != nil {
			r.cfg.OnSessionEnd(info)
		}
	} else {
		logger.Info("录制结束")
	}
}

func (r *recorder) currentLiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.liveID
}

func (r *recorder) Info() *RecorderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info := &RecorderInfo{
		RoomID:        r.cfg.RoomID,
		Platform:      r.cfg.Platform.String(),
		TotalLength:   r.totalLength + r.sessionLength,
		CurrentLiveID: r.liveID,
		LiveStatus:    r.liveStatus,
		State:         r.State().String(),
	}
	fillMetadata(info, r.meta)
	if info.RoomInfo.RoomID == "" {
		info.RoomInfo.RoomID = r.cfg.RoomID
	}
	return info
}

// withJournal 正在录制的会话直接使用当前连接，其余会话临时打开
func (r *recorder) withJournal(liveID string, fn func(j *archive.Journal) error) error {
	r.mu.RLock()
	if cur := r.current; cur != nil && r.liveID == liveID {
		r.pinMu.RLock()
		r.mu.RUnlock()
		defer r.pinMu.RUnlock()
		return fn(cur)
	}
	r.mu.RUnlock()
	j, err := r.cfg.Store.OpenSession(liveID)
	if err != nil {
		return err
	}
	defer j.Release()
	return fn(j)
}

func (r *recorder) isActive(liveID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current != nil && r.liveID == liveID
}

func (r *recorder) Archives() ([]*archive.SessionInfo, error) {
	return r.cfg.Store.List()
}

func (r *recorder) Archive(liveID string) (*archive.SessionInfo, error) {
	var info *archive.SessionInfo
	err := r.withJournal(liveID, func(j *archive.Journal) (err error) {
		info, err = j.Info()
		return
	})
	return info, err
}

func (r *recorder) DeleteArchive(liveID string) error {
	if r.isActive(liveID) {
		return fmt.Errorf("%w: %s", ErrArchiveActive, liveID)
	}
	info, err := r.Archive(liveID)
	if err != nil {
		return err
	}
	if err := r.cfg.Store.Remove(liveID); err != nil {
		return err
	}
	r.mu.Lock()
	r.totalLength -= info.Length
	if r.totalLength < 0 {
		r.totalLength = 0
	}
	r.mu.Unlock()
	if r.cfg.Records != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.cfg.Records.RemoveRecord(ctx, liveID); err != nil && !errors.Is(err, database.ErrNotFound) {
			r.logger.WithError(err).WithField("live_id", liveID).Warn("删除录制记录失败")
		}
	}
	r.logger.WithField("live_id", liveID).Info("已删除录制会话")
	return nil
}

func (r *recorder) Comments(liveID string) ([]danmu.Entry, error) {
	var entries []danmu.Entry
	err := r.withJournal(liveID, func(j *archive.Journal) (err error) {
		entries, err = j.Danmu()
		return
	})
	return entries, err
}

func (r *recorder) M3U8Content(liveID string) (string, error) {
	var content string
	err := r.withJournal(liveID, func(j *archive.Journal) (err error) {
		content, err = j.BuildPlaylist()
		return
	})
	return content, err
}

func (r *recorder) SegmentPath(liveID, name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == archive.JournalFile {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if !archive.ValidLiveID(liveID) {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, liveID)
	}
	path := filepath.Join(r.cfg.Store.Dir(liveID), name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

type segmentList []*archive.Segment

func (s segmentList) Segments() ([]*archive.Segment, error) {
	return s, nil
}

// ClipRange 截取会话的 [start, end) 秒，output 为空时按模板命名
func (r *recorder) ClipRange(ctx context.Context, liveID string, start, end float64, output string, progress transcoder.ProgressFunc) (string, error) {
	if r.cfg.Clipper == nil {
		return "", errors.New("clip pipeline not configured")
	}
	var (
		segments []*archive.Segment
		info     *archive.SessionInfo
	)
	err := r.withJournal(liveID, func(j *archive.Journal) (err error) {
		if segments, err = j.Segments(); err != nil {
			return err
		}
		info, err = j.Info()
		return err
	})
	if err != nil {
		return "", err
	}
	if output == "" {
		name, err := clip.Name(r.cfg.ClipNameTmpl, clip.NameData{
			Platform: r.cfg.Platform.String(),
			RoomID:   r.cfg.RoomID,
			LiveID:   liveID,
			Title:    info.Title,
			Start:    start,
			End:      end,
			Now:      time.Now(),
		})
		if err != nil {
			return "", err
		}
		output = filepath.Join(r.cfg.ClipOutput, name)
	}

	path, err := r.cfg.Clipper.Extract(ctx, segmentList(segments), clip.Request{
		Start:  start,
		End:    end,
		Output: output,
	}, progress)
	result := "success"
	if err != nil {
		result = "failure"
		r.logger.WithError(err).WithField("live_id", liveID).Warn("切片失败")
	} else {
		r.logger.WithFields(logrus.Fields{
			"live_id": liveID,
			"output":  path,
		}).Info("切片完成")
	}
	metrics.ClipsTotal.WithLabelValues(r.cfg.Platform.String(), result).Inc()
	return path, err
}
