package instance

import (
	"context"
	"sync"

	"github.com/bluele/gcache"

	"github.com/bililive-go/shadowreplay/src/database"
	"github.com/bililive-go/shadowreplay/src/interfaces"
	"github.com/bililive-go/shadowreplay/src/pkg/transcoder"
)

type key int

const instanceKey key = iota

// Instance 进程内各模块的集合，通过 context 传递
type Instance struct {
	WaitGroup       sync.WaitGroup
	Cache           gcache.Cache
	Database        database.Store
	Transcoder      transcoder.Transcoder
	Server          interfaces.Module
	RecorderManager interfaces.Module
}

func New() *Instance {
	return &Instance{
		Cache: gcache.New(1024).LRU().Build(),
	}
}

func WithInstance(ctx context.Context, inst *Instance) context.Context {
	return context.WithValue(ctx, instanceKey, inst)
}

// GetInstance ctx 中没有 Instance 时返回 nil
func GetInstance(ctx context.Context) *Instance {
	if ctx == nil {
		return nil
	}
	inst, _ := ctx.Value(instanceKey).(*Instance)
	return inst
}
