//go:generate go run go.uber.org/mock/mockgen -package mock -destination mock/mock.go github.com/bililive-go/shadowreplay/src/live Adapter,Stream,ChatSubscription
package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/hr3lxphr6j/requests"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/shadowreplay/src/live/credential"
)

var (
	ErrRoomNotExist        = errors.New("room not exists")
	ErrNotSupported        = errors.New("not supported by platform")
	ErrStreamUnavailable   = errors.New("stream unavailable")
	ErrUnknownPlatform     = errors.New("unknown platform")
	ErrCredentialsRequired = errors.New("credentials required")
)

// Platform 直播平台
type Platform string

const (
	BiliBili Platform = "bilibili"
	Douyin   Platform = "douyin"
	Huya     Platform = "huya"
	YouTube  Platform = "youtube"
)

var cnNames = map[Platform]string{
	BiliBili: "哔哩哔哩",
	Douyin:   "抖音",
	Huya:     "虎牙",
	YouTube:  "YouTube",
}

func (p Platform) String() string {
	return string(p)
}

func (p Platform) CNName() string {
	if name, ok := cnNames[p]; ok {
		return name
	}
	return string(p)
}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if _, ok := cnNames[p]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlatform, s)
	}
	return p, nil
}

var CommonUserAgent = requests.UserAgent(userAgent)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// UserAgent 供直接使用 net/http 的请求设置
func UserAgent() string {
	return userAgent
}

// Adapter 各平台统一的能力集合，录制逻辑只依赖这个接口
type Adapter interface {
	Platform() Platform
	IsLive(ctx context.Context, roomID string) (bool, error)
	// ResolveStream 解析直播流，cred 可以为 nil
	ResolveStream(ctx context.Context, roomID string, cred *credential.Credential) (Stream, error)
	FetchMetadata(ctx context.Context, roomID string) (*RoomMetadata, error)
	// SubscribeChat 每场直播单独订阅，返回的订阅不能跨场复用
	SubscribeChat(ctx context.Context, roomID string) (ChatSubscription, error)
	SendMessage(ctx context.Context, cred *credential.Credential, roomID, text string) error
}

// Stream 逐个产出媒体分片，直播结束时返回 io.EOF
type Stream interface {
	Next(ctx context.Context) (*Chunk, error)
	Close() error
}

// ChatSubscription 逐条产出弹幕，连接断开时返回错误
type ChatSubscription interface {
	Next(ctx context.Context) (*ChatEvent, error)
	Close() error
}

type Builder interface {
	Build(opts *Options) (Adapter, error)
}

type Options struct {
	Client *http.Client
	Logger *logrus.Entry
	// APIKey 部分平台（YouTube）需要
	APIKey string
}

type Option func(*Options)

func WithClient(c *http.Client) Option {
	return func(o *Options) { o.Client = c }
}

func WithLogger(l *logrus.Entry) Option {
	return func(o *Options) { o.Logger = l }
}

func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}

func NewOptions(opts ...Option) *Options {
	o := &Options{
		Client: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = logrus.WithField("module", "live")
	}
	return o
}

var (
	buildersMu sync.RWMutex
	builders   = make(map[Platform]Builder)
)

// Register 由各平台包在 init 中调用
func Register(p Platform, b Builder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[p] = b
}

// New 创建平台适配器
func New(p Platform, opts ...Option) (Adapter, error) {
	buildersMu.RLock()
	b, ok := builders[p]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, p)
	}
	return b.Build(NewOptions(opts...))
}

// Platforms 返回已注册的平台
func Platforms() []Platform {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	ps := make([]Platform, 0, len(builders))
	for p := range builders {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	return ps
}
