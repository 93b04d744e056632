package huya

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hr3lxphr6j/requests"
	"github.com/tidwall/gjson"

	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/live/credential"
	"github.com/bililive-go/shadowreplay/src/live/hls"
	"github.com/bililive-go/shadowreplay/src/live/internal"
)

const (
	defaultHost = "https://mp.huya.com"
	profilePath = "/cache.php"
	roomPage    = "https://www.huya.com/"
)

func init() {
	live.Register(live.Huya, new(builder))
}

type builder struct{}

func (b *builder) Build(opts *live.Options) (live.Adapter, error) {
	return New(opts), nil
}

type Adapter struct {
	internal.BaseAdapter
	internal.NoChat
	internal.NoSend
	host string
}

func New(opts *live.Options) *Adapter {
	return &Adapter{
		BaseAdapter: internal.NewBaseAdapter(live.Huya, opts),
		host:        defaultHost,
	}
}

func (a *Adapter) Platform() live.Platform {
	return live.Huya
}

func (a *Adapter) profile(ctx context.Context, roomID string, cred *credential.Credential) (gjson.Result, error) {
	opts := []requests.RequestOption{
		requests.Query("m", "Live"),
		requests.Query("do", "profileRoom"),
		requests.Query("roomid", roomID),
	}
	if cred != nil {
		opts = append(opts, requests.Cookies(cred.CookieMap()))
	}
	body, err := a.GetJSON(ctx, a.host+profilePath, opts...)
	if err != nil {
		return gjson.Result{}, err
	}
	if body.Get("status").Int() != 200 {
		return gjson.Result{}, live.ErrRoomNotExist
	}
	data := body.Get("data")
	if !data.Get("profileInfo").Exists() {
		return gjson.Result{}, live.ErrRoomNotExist
	}
	return data, nil
}

func isLive(data gjson.Result) bool {
	return data.Get("realLiveStatus").String() == "ON" || data.Get("liveStatus").String() == "ON"
}

func (a *Adapter) IsLive(ctx context.Context, roomID string) (bool, error) {
	data, err := a.profile(ctx, roomID, nil)
	if err != nil {
		return false, err
	}
	return isLive(data), nil
}

func (a *Adapter) FetchMetadata(ctx context.Context, roomID string) (*live.RoomMetadata, error) {
	data, err := a.profile(ctx, roomID, nil)
	if err != nil {
		return nil, err
	}
	meta := &live.RoomMetadata{
		RoomID:     roomID,
		Title:      data.Get("liveData.introduction").String(),
		Cover:      data.Get("liveData.screenshot").String(),
		UserID:     data.Get("profileInfo.uid").String(),
		UserName:   data.Get("profileInfo.nick").String(),
		UserAvatar: data.Get("profileInfo.avatar180").String(),
		Live:       isLive(data),
	}
	if ts := data.Get("liveData.startTime").Int(); ts > 0 && meta.Live {
		meta.StartTime = time.Unix(ts, 0)
	}
	return meta, nil
}

// ResolveStream 使用第一条 CDN 线路的 HLS 地址
func (a *Adapter) ResolveStream(ctx context.Context, roomID string, cred *credential.Credential) (live.Stream, error) {
	data, err := a.profile(ctx, roomID, cred)
	if err != nil {
		return nil, err
	}
	if !isLive(data) {
		return nil, live.ErrStreamUnavailable
	}
	var playlistURL string
	data.Get("stream.baseSteamInfoList").ForEach(func(_, info gjson.Result) bool {
		base := info.Get("sHlsUrl").String()
		name := info.Get("sStreamName").String()
		if base == "" || name == "" {
			return true
		}
		suffix := info.Get("sHlsUrlSuffix").String()
		if suffix == "" {
			suffix = "m3u8"
		}
		playlistURL = fmt.Sprintf("%s/%s.%s", strings.TrimSuffix(base, "/"), name, suffix)
		if anti := info.Get("sHlsAntiCode").String(); anti != "" {
			playlistURL += "?" + anti
		}
		return false
	})
	if playlistURL == "" {
		return nil, live.ErrStreamUnavailable
	}
	header := http.Header{}
	header.Set("Referer", roomPage+roomID)
	return hls.Open(ctx, a.Client, playlistURL,
		hls.WithHeader(header),
		hls.WithLogger(a.Logger.WithField("room", roomID)),
	)
}
