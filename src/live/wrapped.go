package live

import (
	"context"
	"time"

	"github.com/bluele/gcache"

	"github.com/bililive-go/shadowreplay/src/live/credential"
	"github.com/bililive-go/shadowreplay/src/pkg/ratelimit"
)

// WrappedAdapter 在平台适配器外加上访问频率限制与直播间信息缓存
type WrappedAdapter struct {
	Adapter
	cache   gcache.Cache
	ttl     time.Duration
	limiter *ratelimit.Limiter
}

// Wrap 返回带缓存与限流的适配器，ttl <= 0 时不缓存直播间信息
func Wrap(a Adapter, ttl time.Duration, limiter *ratelimit.Limiter) *WrappedAdapter {
	if limiter == nil {
		limiter = ratelimit.Global()
	}
	return &WrappedAdapter{
		Adapter: a,
		cache:   gcache.New(1024).LRU().Build(),
		ttl:     ttl,
		limiter: limiter,
	}
}

func (w *WrappedAdapter) wait(ctx context.Context) error {
	return w.limiter.Wait(ctx, w.Platform().String())
}

func (w *WrappedAdapter) IsLive(ctx context.Context, roomID string) (bool, error) {
	if err := w.wait(ctx); err != nil {
		return false, err
	}
	return w.Adapter.IsLive(ctx, roomID)
}

func (w *WrappedAdapter) ResolveStream(ctx context.Context, roomID string, cred *credential.Credential) (Stream, error) {
	if err := w.wait(ctx); err != nil {
		return nil, err
	}
	return w.Adapter.ResolveStream(ctx, roomID, cred)
}

// FetchMetadata 在 ttl 内复用上一次的结果
func (w *WrappedAdapter) FetchMetadata(ctx context.Context, roomID string) (*RoomMetadata, error) {
	if w.ttl > 0 {
		if v, err := w.cache.Get(roomID); err == nil {
			return v.(*RoomMetadata), nil
		}
	}
	if err := w.wait(ctx); err != nil {
		return nil, err
	}
	meta, err := w.Adapter.FetchMetadata(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if w.ttl > 0 {
		_ = w.cache.SetWithExpire(roomID, meta, w.ttl)
	}
	return meta, nil
}

// Invalidate 丢弃某个直播间的缓存
func (w *WrappedAdapter) Invalidate(roomID string) {
	w.cache.Remove(roomID)
}

func (w *WrappedAdapter) SendMessage(ctx context.Context, cred *credential.Credential, roomID, text string) error {
	if err := w.wait(ctx); err != nil {
		return err
	}
	return w.Adapter.SendMessage(ctx, cred, roomID, text)
}
