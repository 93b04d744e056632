package configs

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"gopkg.in/yaml.v3"

	"github.com/bililive-go/shadowreplay/src/pkg/ratelimit"
)

// RPC info.
type RPC struct {
	Enable bool   `yaml:"enable" json:"enable"`
	Bind   string `yaml:"bind" json:"bind"`
}

var defaultRPC = RPC{
	Enable: true,
	Bind:   ":8080",
}

func (r *RPC) verify() error {
	if r == nil {
		return nil
	}
	if !r.Enable {
		return nil
	}
	if _, err := net.ResolveTCPAddr("tcp", r.Bind); err != nil {
		return fmt.Errorf("无效的RPC绑定地址: %w", err)
	}
	return nil
}

type Log struct {
	OutPutFolder string `yaml:"out_put_folder" json:"out_put_folder"`
	SaveLastLog  bool   `yaml:"save_last_log" json:"save_last_log"`
	SaveEveryLog bool   `yaml:"save_every_log" json:"save_every_log"`
	RotateDays   int    `yaml:"rotate_days" json:"rotate_days"`
}

// Retry 分片下载失败后的重试策略
type Retry struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
}

// Backoff 返回第 attempt 次（从 1 开始）失败后的等待时间
func (r Retry) Backoff(attempt int) time.Duration {
	d := r.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.MaxBackoff {
			return r.MaxBackoff
		}
	}
	if d > r.MaxBackoff {
		return r.MaxBackoff
	}
	return d
}

type Record struct {
	ConnectTimeout          time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	FetchTimeout            time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
	PollTimeout             time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
	Retry                   Retry         `yaml:"retry" json:"retry"`
	ContiguityTolerance     time.Duration `yaml:"contiguity_tolerance" json:"contiguity_tolerance"`
	MetadataRefreshInterval time.Duration `yaml:"metadata_refresh_interval" json:"metadata_refresh_interval"`
}

var defaultRecord = Record{
	ConnectTimeout: 20 * time.Second,
	FetchTimeout:   15 * time.Second,
	PollTimeout:    10 * time.Second,
	Retry: Retry{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	},
	ContiguityTolerance:     10 * time.Second,
	MetadataRefreshInterval: time.Minute,
}

type Danmu struct {
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

type Clip struct {
	OutPutPath string `yaml:"out_put_path" json:"out_put_path"`
	// NameTmpl 切片文件名模板，可使用 sprig 函数
	NameTmpl string `yaml:"name_tmpl" json:"name_tmpl"`
}

const defaultClipNameTmpl = `[{{ .Platform }}][{{ .RoomID }}][{{ .LiveID }}]{{ .Start | int }}-{{ .End | int }}_{{ now | date "20060102150405" }}.mp4`

type PlatformConfig struct {
	// MinAccessIntervalSec 同一平台两次 API 请求之间的最小间隔（秒）
	MinAccessIntervalSec int    `yaml:"min_access_interval_sec" json:"min_access_interval_sec"`
	APIKey               string `yaml:"api_key,omitempty" json:"-"`
}

type Sentry struct {
	Enable bool `yaml:"enable" json:"enable"`
}

type Config struct {
	RPC         RPC    `yaml:"rpc" json:"rpc"`
	Debug       bool   `yaml:"debug" json:"debug"`
	Interval    int    `yaml:"interval" json:"interval"`
	OutPutPath  string `yaml:"out_put_path" json:"out_put_path"`
	AppDataPath string `yaml:"app_data_path" json:"app_data_path"`
	FfmpegPath  string `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	Log         Log    `yaml:"log" json:"log"`
	Record      Record `yaml:"record" json:"record"`
	Danmu       Danmu  `yaml:"danmu" json:"danmu"`
	Clip        Clip   `yaml:"clip" json:"clip"`
	// PrimaryAccounts 平台 -> 默认使用的账号 uid
	PrimaryAccounts map[string]string         `yaml:"primary_accounts" json:"primary_accounts"`
	Platforms       map[string]PlatformConfig `yaml:"platforms" json:"platforms"`
	Sentry          Sentry                    `yaml:"sentry" json:"sentry"`

	File    string `yaml:"-" json:"-"`
	Version int64  `yaml:"-" json:"version"`
}

var config atomic.Value // stores *Config

var currentDebug atomic.Bool

// 序列化所有 Update 操作
var updateMu sync.Mutex

func SetCurrentConfig(cfg *Config) {
	if cfg == nil {
		config.Store((*Config)(nil))
		currentDebug.Store(false)
		return
	}
	config.Store(cfg)
	currentDebug.Store(cfg.Debug)
	cfg.syncPlatformRateLimits()
}

func GetCurrentConfig() *Config {
	v := config.Load()
	if v == nil {
		return nil
	}
	return v.(*Config)
}

// IsDebug 并发安全地读取 Debug 标志
func IsDebug() bool {
	return currentDebug.Load()
}

// Update 以“复制-修改-原子替换”的方式更新全局配置，配置来自文件时会写回文件。
// mutator 只能修改参数 c，不要保留 c 的引用。
func Update(mutator func(c *Config) error) (*Config, error) {
	updateMu.Lock()
	defer updateMu.Unlock()
	old := GetCurrentConfig()
	var base *Config
	if old == nil {
		base = NewConfig()
	} else {
		base = old.clone()
	}
	if err := mutator(base); err != nil {
		return nil, err
	}
	if old != nil {
		base.Version = old.Version + 1
	} else {
		base.Version = 1
	}
	if base.File != "" {
		if err := base.Marshal(); err != nil {
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
	}
	SetCurrentConfig(base)
	return base, nil
}

// SetDebug 更新 Debug 标志。
func SetDebug(v bool) (*Config, error) {
	return Update(func(c *Config) error { c.Debug = v; return nil })
}

func (c *Config) clone() *Config {
	n := *c
	n.PrimaryAccounts = make(map[string]string, len(c.PrimaryAccounts))
	for k, v := range c.PrimaryAccounts {
		n.PrimaryAccounts[k] = v
	}
	n.Platforms = make(map[string]PlatformConfig, len(c.Platforms))
	for k, v := range c.Platforms {
		n.Platforms[k] = v
	}
	return &n
}

func defaultConfig() Config {
	return Config{
		RPC:        defaultRPC,
		Debug:      false,
		Interval:   30,
		OutPutPath: "./",
		FfmpegPath: "",
		Log: Log{
			OutPutFolder: "./",
			SaveLastLog:  true,
			SaveEveryLog: false,
			RotateDays:   7,
		},
		Record: defaultRecord,
		Danmu: Danmu{
			BufferSize: 256,
		},
		Clip: Clip{
			NameTmpl: defaultClipNameTmpl,
		},
		PrimaryAccounts: map[string]string{},
		Platforms:       map[string]PlatformConfig{},
	}
}

func NewConfig() *Config {
	c := defaultConfig()
	newConfigPostProcess(&c)
	return &c
}

func newConfigPostProcess(c *Config) {
	if c.AppDataPath == "" {
		c.AppDataPath = filepath.Join(c.OutPutPath, ".appdata")
	}
	if c.Clip.OutPutPath == "" {
		c.Clip.OutPutPath = filepath.Join(c.OutPutPath, "clips")
	}
	if c.PrimaryAccounts == nil {
		c.PrimaryAccounts = map[string]string{}
	}
	if c.Platforms == nil {
		c.Platforms = map[string]PlatformConfig{}
	}
}

// Verify will return an error when this config has problem.
func (c *Config) Verify() error {
	if c == nil {
		return fmt.Errorf("配置不存在")
	}
	if err := c.RPC.verify(); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return fmt.Errorf("检测间隔必须大于 0")
	}
	if _, err := os.Stat(c.OutPutPath); err != nil {
		return fmt.Errorf(`输出路径 "%s" 不存在`, c.OutPutPath)
	}
	if err := c.Record.verify(); err != nil {
		return err
	}
	if c.Danmu.BufferSize <= 0 {
		return fmt.Errorf("弹幕缓冲区大小必须大于 0")
	}
	if _, err := template.New("clip").Funcs(sprig.TxtFuncMap()).Parse(c.Clip.NameTmpl); err != nil {
		return fmt.Errorf("切片文件名模板无效: %w", err)
	}
	for name, p := range c.Platforms {
		if p.MinAccessIntervalSec < 0 {
			return fmt.Errorf("平台 %s 的最小访问间隔不能为负数", name)
		}
	}
	return nil
}

func (r *Record) verify() error {
	if r.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("最大重试次数必须大于 0")
	}
	if r.Retry.InitialBackoff <= 0 || r.Retry.MaxBackoff < r.Retry.InitialBackoff {
		return fmt.Errorf("重试退避时间配置无效")
	}
	if r.ConnectTimeout <= 0 || r.FetchTimeout <= 0 || r.PollTimeout <= 0 {
		return fmt.Errorf("超时时间必须大于 0")
	}
	if r.MetadataRefreshInterval < time.Second {
		return fmt.Errorf("直播间信息刷新间隔最小值为 1 秒")
	}
	return nil
}

// PlatformConfig 返回平台配置，未配置时返回零值
func (c *Config) PlatformConfig(platform string) PlatformConfig {
	if c == nil || c.Platforms == nil {
		return PlatformConfig{}
	}
	return c.Platforms[platform]
}

func (c *Config) syncPlatformRateLimits() {
	for name, p := range c.Platforms {
		ratelimit.Global().SetInterval(name, time.Duration(p.MinAccessIntervalSec)*time.Second)
	}
}

func NewConfigWithBytes(b []byte) (*Config, error) {
	c := defaultConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	newConfigPostProcess(&c)
	return &c, nil
}

func NewConfigWithFile(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("can`t open file: %s: %w", file, err)
	}
	c, err := NewConfigWithBytes(b)
	if err != nil {
		return nil, err
	}
	c.File = file
	return c, nil
}

func (c *Config) Marshal() error {
	if c.File == "" {
		return errors.New("config path not set")
	}
	var node yaml.Node
	if err := node.Encode(c); err != nil {
		return err
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{&node}}
	decorateConfigNode(doc)
	b, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(c.File, b, 0644)
}
