package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigWithBytes(t *testing.T) {
	c, err := NewConfigWithBytes([]byte(`
interval: 15
out_put_path: /tmp
record:
  connect_timeout: 5s
  retry:
    max_attempts: 3
    initial_backoff: 200ms
    max_backoff: 2s
platforms:
  bilibili:
    min_access_interval_sec: 2
`))
	require.NoError(t, err)
	assert.Equal(t, 15, c.Interval)
	assert.Equal(t, 5*time.Second, c.Record.ConnectTimeout)
	assert.Equal(t, 3, c.Record.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, c.Record.Retry.InitialBackoff)
	// 未填写的字段保留默认值
	assert.Equal(t, defaultRecord.FetchTimeout, c.Record.FetchTimeout)
	assert.Equal(t, 256, c.Danmu.BufferSize)
	assert.Equal(t, 2, c.PlatformConfig("bilibili").MinAccessIntervalSec)
	assert.Equal(t, filepath.Join("/tmp", "clips"), c.Clip.OutPutPath)
}

func TestRPC_Verify(t *testing.T) {
	var rpc *RPC
	assert.NoError(t, rpc.verify())
	rpc = new(RPC)
	rpc.Bind = "foo@bar"
	assert.NoError(t, rpc.verify())
	rpc.Enable = true
	assert.Error(t, rpc.verify())
}

func TestConfig_Verify(t *testing.T) {
	var cfg *Config
	assert.Error(t, cfg.Verify())

	cfg = NewConfig()
	cfg.OutPutPath = os.TempDir()
	assert.NoError(t, cfg.Verify())

	cfg.Interval = 0
	assert.Error(t, cfg.Verify())
	cfg.Interval = 30

	cfg.OutPutPath = "foobar-not-exist"
	assert.Error(t, cfg.Verify())
	cfg.OutPutPath = os.TempDir()

	cfg.Record.Retry.MaxAttempts = 0
	assert.Error(t, cfg.Verify())
	cfg.Record.Retry.MaxAttempts = 5

	cfg.Clip.NameTmpl = "{{ .Broken"
	assert.Error(t, cfg.Verify())
}

func TestRetryBackoff(t *testing.T) {
	r := Retry{MaxAttempts: 5, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 8 * time.Second}
	assert.Equal(t, 500*time.Millisecond, r.Backoff(1))
	assert.Equal(t, time.Second, r.Backoff(2))
	assert.Equal(t, 2*time.Second, r.Backoff(3))
	assert.Equal(t, 4*time.Second, r.Backoff(4))
	assert.Equal(t, 8*time.Second, r.Backoff(5))
	assert.Equal(t, 8*time.Second, r.Backoff(9))
}

func TestUpdatePersists(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(file, []byte("debug: false\n"), 0644))

	cfg, err := NewConfigWithFile(file)
	require.NoError(t, err)
	SetCurrentConfig(cfg)
	defer SetCurrentConfig(nil)

	_, err = SetDebug(true)
	require.NoError(t, err)
	assert.True(t, IsDebug())
	assert.Equal(t, int64(1), GetCurrentConfig().Version)

	reloaded, err := NewConfigWithFile(file)
	require.NoError(t, err)
	assert.True(t, reloaded.Debug)
}
