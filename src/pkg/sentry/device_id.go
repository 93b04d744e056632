package sentry

import (
	"context"
	"strings"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
)

const deviceIDKey = "device_id"

// MetaStore 持久化设备 ID 的键值存储
type MetaStore interface {
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

var (
	cachedDeviceID string
	deviceIDOnce   sync.Once

	metaStoreMu sync.RWMutex
	metaStore   MetaStore
)

// SetDeviceIDStore 需要在 Init 之前调用，否则每次启动都会生成新的 ID
func SetDeviceIDStore(s MetaStore) {
	metaStoreMu.Lock()
	defer metaStoreMu.Unlock()
	metaStore = s
}

// GetAnonymousDeviceID 返回 32 位十六进制的匿名设备 ID，首次调用后缓存
func GetAnonymousDeviceID() string {
	deviceIDOnce.Do(func() {
		cachedDeviceID = loadOrCreateDeviceID()
	})
	return cachedDeviceID
}

func loadOrCreateDeviceID() string {
	metaStoreMu.RLock()
	store := metaStore
	metaStoreMu.RUnlock()
	if store == nil {
		return generateUUID()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if id, err := store.GetMeta(ctx, deviceIDKey); err == nil && id != "" {
		return id
	}
	id := generateUUID()
	// 保存失败不影响本次使用
	_ = store.SetMeta(ctx, deviceIDKey, id)
	return id
}

func generateUUID() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")
}
