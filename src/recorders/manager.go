package recorders

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bililive-go/shadowreplay/src/archive"
	"github.com/bililive-go/shadowreplay/src/clip"
	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/danmu"
	"github.com/bililive-go/shadowreplay/src/database"
	"github.com/bililive-go/shadowreplay/src/instance"
	"github.com/bililive-go/shadowreplay/src/interfaces"
	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/pkg/livelogger"
	bilisentry "github.com/bililive-go/shadowreplay/src/pkg/sentry"
	"github.com/bililive-go/shadowreplay/src/pkg/transcoder"
)

// BroadcastRecorderStatusFunc 是用于广播录制器状态的回调函数类型
type BroadcastRecorderStatusFunc func(info *RecorderInfo)

// DanmuFunc 收到弹幕时的回调函数类型
type DanmuFunc func(platform live.Platform, roomID string, e danmu.Entry)

var (
	// broadcastRecorderStatusFunc 全局广播函数，由 servers 包设置
	broadcastRecorderStatusFunc BroadcastRecorderStatusFunc
	// onDanmuFunc 在创建录制器时读取
	onDanmuFunc DanmuFunc
)

// SetBroadcastRecorderStatusFunc 设置录制器状态广播函数
func SetBroadcastRecorderStatusFunc(fn BroadcastRecorderStatusFunc) {
	broadcastRecorderStatusFunc = fn
}

// SetOnDanmuFunc 设置弹幕回调，只对之后添加的直播间生效
func SetOnDanmuFunc(fn DanmuFunc) {
	onDanmuFunc = fn
}

const (
	statusInterval   = 5 * time.Second
	archiveCacheTTL  = 10 * time.Second
	metadataCacheTTL = 10 * time.Second
)

type Manager interface {
	interfaces.Module
	// AddRecorder 校验直播间后开始监控，account 可以为空
	AddRecorder(ctx context.Context, platform live.Platform, account *database.Account, roomID string) (Recorder, error)
	// RemoveRecorder 停止录制并等待会话关闭后移除
	RemoveRecorder(ctx context.Context, platform live.Platform, roomID string) error
	GetRecorder(platform live.Platform, roomID string) (Recorder, error)
	GetRecorderList() []*RecorderInfo
	GetRecorderInfo(platform live.Platform, roomID string) (*RecorderInfo, bool)
	// RecorderCount 各平台的直播间数量
	RecorderCount() map[string]int

	GetArchives(platform live.Platform, roomID string) ([]*archive.SessionInfo, error)
	GetArchive(platform live.Platform, roomID, liveID string) (*archive.SessionInfo, error)
	DeleteArchive(platform live.Platform, roomID, liveID string) error
	GetDanmu(platform live.Platform, roomID, liveID string) ([]danmu.Entry, error)
	ClipRange(ctx context.Context, platform live.Platform, roomID, liveID string, start, end float64, output string, progress transcoder.ProgressFunc) (string, error)
	M3U8Content(platform live.Platform, roomID, liveID string) (string, error)
	SegmentPath(platform live.Platform, roomID, liveID, name string) (string, error)
	Logs(platform live.Platform, roomID string) (string, error)

	SendMessage(ctx context.Context, platform live.Platform, account *database.Account, roomID, text string) error
	Adapter(platform live.Platform) (live.Adapter, error)
}

var errManagerClosed = fmt.Errorf("recorder manager closed: %w", context.Canceled)

// for test
var (
	newRecorder = NewRecorder
	newAdapter  = func(p live.Platform, cfg *configs.Config) (live.Adapter, error) {
		return live.New(p, live.WithAPIKey(cfg.PlatformConfig(p.String()).APIKey))
	}
)

type roomKey struct {
	platform live.Platform
	roomID   string
}

func (k roomKey) String() string {
	return k.platform.String() + "/" + k.roomID
}

// entry recorder 为空表示正在添加，removing 表示正在停止，两种情况下都占用该直播间
type entry struct {
	recorder Recorder
	removing bool
}

type manager struct {
	lock   sync.RWMutex
	savers map[roomKey]*entry

	adaptersMu sync.Mutex
	adapters   map[live.Platform]live.Adapter

	records  RecordSink
	clipper  *clip.Pipeline
	archives gcache.Cache
	logger   *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	inst   *instance.Instance

	statusTicker *time.Ticker
	statusStopCh chan struct{}
	statusWg     sync.WaitGroup
	closeOnce    sync.Once
}

// NewManager records 与 tc 可以为空，tc 为空时不能切片
func NewManager(ctx context.Context, records RecordSink, tc transcoder.Transcoder) Manager {
	m := &manager{
		savers:       make(map[roomKey]*entry),
		adapters:     make(map[live.Platform]live.Adapter),
		records:      records,
		archives:     gcache.New(256).LRU().Build(),
		logger:       logrus.WithField("module", "recorders"),
		statusStopCh: make(chan struct{}),
	}
	if tc != nil {
		m.clipper = clip.NewPipeline(tc, "")
	}
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	if inst := instance.GetInstance(ctx); inst != nil {
		inst.RecorderManager = m
		m.inst = inst
	}
	return m
}

func currentConfig() *configs.Config {
	if cfg := configs.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return configs.NewConfig()
}

func (m *manager) Start(ctx context.Context) error {
	if m.inst != nil {
		m.inst.WaitGroup.Add(1)
	}
	m.startStatusBroadcaster()
	return nil
}

// Close 并行停止所有录制器并等待其会话关闭
func (m *manager) Close(ctx context.Context) {
	m.closeOnce.Do(func() {
		if m.statusTicker != nil {
			m.statusTicker.Stop()
		}
		close(m.statusStopCh)
		m.statusWg.Wait()

		m.lock.Lock()
		recorders := make([]Recorder, 0, len(m.savers))
		for _, e := range m.savers {
			if e.recorder != nil && !e.removing {
				e.removing = true
				recorders = append(recorders, e.recorder)
			}
		}
		m.lock.Unlock()

		var g errgroup.Group
		for _, r := range recorders {
			g.Go(func() error {
				r.Stop()
				return nil
			})
		}
		_ = g.Wait()

		m.lock.Lock()
		clear(m.savers)
		m.lock.Unlock()
		m.cancel()
		m.logger.WithField("count", len(recorders)).Info("所有录制器已停止")

		if m.inst != nil {
			m.inst.WaitGroup.Done()
		}
	})
}

// Adapter 每个平台只创建一个适配器，所有直播间共享其限流与缓存
func (m *manager) Adapter(platform live.Platform) (live.Adapter, error) {
	m.adaptersMu.Lock()
	defer m.adaptersMu.Unlock()
	if a, ok := m.adapters[platform]; ok {
		return a, nil
	}
	a, err := newAdapter(platform, currentConfig())
	if err != nil {
		return nil, err
	}
	wrapped := live.Wrap(a, metadataCacheTTL, nil)
	m.adapters[platform] = wrapped
	return wrapped, nil
}

func (m *manager) AddRecorder(ctx context.Context, platform live.Platform, account *database.Account, roomID string) (Recorder, error) {
	key := roomKey{platform, roomID}
	m.lock.Lock()
	if m.ctx.Err() != nil {
		m.lock.Unlock()
		return nil, errManagerClosed
	}
	if _, ok := m.savers[key]; ok {
		m.lock.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}
	m.savers[key] = &entry{}
	m.lock.Unlock()

	r, err := m.buildRecorder(ctx, key, account)
	if err != nil {
		m.lock.Lock()
		delete(m.savers, key)
		m.lock.Unlock()
		return nil, err
	}

	m.lock.Lock()
	e, ok := m.savers[key]
	if !ok || m.ctx.Err() != nil {
		m.lock.Unlock()
		r.Stop()
		return nil, errManagerClosed
	}
	e.recorder = r
	m.lock.Unlock()

	bilisentry.GoWithContext(m.ctx, func(ctx context.Context) {
		if err := r.Run(ctx); err != nil {
			m.logger.WithError(err).WithField("room", key.String()).Error("录制器退出")
		}
	})
	m.logger.WithField("room", key.String()).Info("已添加直播间")
	return r, nil
}

// buildRecorder 网络校验在注册表锁之外进行
func (m *manager) buildRecorder(ctx context.Context, key roomKey, account *database.Account) (Recorder, error) {
	adapter, err := m.Adapter(key.platform)
	if err != nil {
		return nil, err
	}
	meta, err := adapter.FetchMetadata(ctx, key.roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlatformRejected, err)
	}

	cfg := currentConfig()
	logger := livelogger.New(livelogger.DefaultBufferSize, key.platform.String(), key.roomID)
	store := archive.NewStore(cfg.OutPutPath, key.platform.String(), key.roomID,
		archive.WithContiguityTolerance(cfg.Record.ContiguityTolerance),
		archive.WithLogger(logger.Entry),
	)
	rcfg := Config{
		Platform:     key.platform,
		RoomID:       key.roomID,
		Adapter:      adapter,
		Store:        store,
		Clipper:      m.clipper,
		Records:      m.records,
		Record:       cfg.Record,
		Interval:     time.Duration(cfg.Interval) * time.Second,
		DanmuBuffer:  cfg.Danmu.BufferSize,
		ClipNameTmpl: cfg.Clip.NameTmpl,
		ClipOutput:   cfg.Clip.OutPutPath,
		Logger:       logger,
		Metadata:     meta,
		OnSessionEnd: func(*archive.SessionInfo) {
			m.archives.Remove(key)
		},
	}
	if account != nil {
		rcfg.Credential = account.Credential()
	}
	if onDanmuFunc != nil {
		rcfg.OnDanmu = onDanmuFunc
	}
	return newRecorder(rcfg)
}

func (m *manager) RemoveRecorder(ctx context.Context, platform live.Platform, roomID string) error {
	key := roomKey{platform, roomID}
	m.lock.Lock()
	e, ok := m.savers[key]
	if !ok || e.recorder == nil || e.removing {
		m.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	e.removing = true
	m.lock.Unlock()

	e.recorder.Stop()

	m.lock.Lock()
	delete(m.savers, key)
	m.lock.Unlock()
	m.archives.Remove(key)
	if a, err := m.Adapter(platform); err == nil {
		if w, ok := a.(*live.WrappedAdapter); ok {
			w.Invalidate(roomID)
		}
	}
	m.logger.WithField("room", key.String()).Info("已移除直播间")
	return nil
}

func (m *manager) GetRecorder(platform live.Platform, roomID string) (Recorder, error) {
	key := roomKey{platform, roomID}
	m.lock.RLock()
	defer m.lock.RUnlock()
	e, ok := m.savers[key]
	if !ok || e.recorder == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return e.recorder, nil
}

func (m *manager) recorders() []Recorder {
	m.lock.RLock()
	defer m.lock.RUnlock()
	list := make([]Recorder, 0, len(m.savers))
	for _, e := range m.savers {
		if e.recorder != nil {
			list = append(list, e.recorder)
		}
	}
	return list
}

// GetRecorderList 按平台、房间号排序
func (m *manager) GetRecorderList() []*RecorderInfo {
	list := m.recorders()
	infos := make([]*RecorderInfo, 0, len(list))
	for _, r := range list {
		infos = append(infos, r.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Platform != infos[j].Platform {
			return infos[i].Platform < infos[j].Platform
		}
		return infos[i].RoomID < infos[j].RoomID
	})
	return infos
}

func (m *manager) GetRecorderInfo(platform live.Platform, roomID string) (*RecorderInfo, bool) {
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return nil, false
	}
	return r.Info(), true
}

func (m *manager) RecorderCount() map[string]int {
	counts := make(map[string]int)
	for _, r := range m.recorders() {
		counts[r.Platform().String()]++
	}
	return counts
}

// GetArchives 结果缓存一小段时间，删除或会话结束时失效
func (m *manager) GetArchives(platform live.Platform, roomID string) ([]*archive.SessionInfo, error) {
	key := roomKey{platform, roomID}
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return nil, err
	}
	if v, err := m.archives.Get(key); err == nil {
		return v.([]*archive.SessionInfo), nil
	}
	list, err := r.Archives()
	if err != nil {
		return nil, err
	}
	_ = m.archives.SetWithExpire(key, list, archiveCacheTTL)
	return list, nil
}

func (m *manager) GetArchive(platform live.Platform, roomID, liveID string) (*archive.SessionInfo, error) {
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return nil, err
	}
	return r.Archive(liveID)
}

func (m *manager) DeleteArchive(platform live.Platform, roomID, liveID string) error {
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return err
	}
	defer m.archives.Remove(roomKey{platform, roomID})
	return r.DeleteArchive(liveID)
}

func (m *manager) GetDanmu(platform live.Platform, roomID, liveID string) ([]danmu.Entry, error) {
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return nil, err
	}
	return r.Comments(liveID)
}

func (m *manager) ClipRange(ctx context.Context, platform live.Platform, roomID, liveID string, start, end float64, output string, progress transcoder.ProgressFunc) (string, error) {
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return "", err
	}
	if output != "" && !filepath.IsAbs(output) {
		output = filepath.Join(currentConfig().Clip.OutPutPath, output)
	}
	return r.ClipRange(ctx, liveID, start, end, output, progress)
}

func (m *manager) M3U8Content(platform live.Platform, roomID, liveID string) (string, error) {
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return "", err
	}
	return r.M3U8Content(liveID)
}

func (m *manager) SegmentPath(platform live.Platform, roomID, liveID, name string) (string, error) {
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return "", err
	}
	return r.SegmentPath(liveID, name)
}

func (m *manager) Logs(platform live.Platform, roomID string) (string, error) {
	r, err := m.GetRecorder(platform, roomID)
	if err != nil {
		return "", err
	}
	return r.Logs(), nil
}

// SendMessage 以 account 的身份向直播间发送弹幕
func (m *manager) SendMessage(ctx context.Context, platform live.Platform, account *database.Account, roomID, text string) error {
	if account == nil {
		return live.ErrCredentialsRequired
	}
	adapter, err := m.Adapter(platform)
	if err != nil {
		return err
	}
	if err := adapter.SendMessage(ctx, account.Credential(), roomID, text); err != nil {
		if errors.Is(err, live.ErrNotSupported) || errors.Is(err, live.ErrCredentialsRequired) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPlatformRejected, err)
	}
	return nil
}

// startStatusBroadcaster 启动定期广播录制器状态的 goroutine
func (m *manager) startStatusBroadcaster() {
	m.statusTicker = time.NewTicker(statusInterval)

	m.statusWg.Add(1)
	bilisentry.Go(func() {
		defer m.statusWg.Done()
		for {
			select {
			case <-m.statusStopCh:
				return
			case <-m.statusTicker.C:
				m.broadcastAllRecorderStatus()
			}
		}
	})
}

func (m *manager) broadcastAllRecorderStatus() {
	fn := broadcastRecorderStatusFunc
	if fn == nil {
		return
	}
	for _, info := range m.GetRecorderList() {
		fn(info)
	}
}
