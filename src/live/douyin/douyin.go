package douyin

import (
	"context"
	"net/http"
	"time"

	"github.com/hr3lxphr6j/requests"
	"github.com/tidwall/gjson"

	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/live/credential"
	"github.com/bililive-go/shadowreplay/src/live/hls"
	"github.com/bililive-go/shadowreplay/src/live/internal"
)

const (
	defaultHost = "https://live.douyin.com"
	enterPath   = "/webcast/room/web/enter/"

	statusLive = 2
)

// 清晰度从高到低
var qualities = []string{"FULL_HD1", "HD1", "SD1", "SD2"}

func init() {
	live.Register(live.Douyin, new(builder))
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
		BaseAdapter: internal.NewBaseAdapter(live.Douyin, opts),
		host:        defaultHost,
	}
}

func (a *Adapter) Platform() live.Platform {
	return live.Douyin
}

func (a *Adapter) enter(ctx context.Context, roomID string, cred *credential.Credential) (gjson.Result, error) {
	opts := []requests.RequestOption{
		requests.Query("aid", "6383"),
		requests.Query("app_name", "douyin_web"),
		requests.Query("live_id", "1"),
		requests.Query("device_platform", "web"),
		requests.Query("language", "zh-CN"),
		requests.Query("browser_language", "zh-CN"),
		requests.Query("browser_platform", "Win32"),
		requests.Query("browser_name", "Chrome"),
		requests.Query("web_rid", roomID),
		requests.Header("Referer", a.host+"/"+roomID),
	}
	if cred != nil {
		opts = append(opts, requests.Cookies(cred.CookieMap()))
	}
	body, err := a.GetJSON(ctx, a.host+enterPath, opts...)
	if err != nil {
		return gjson.Result{}, err
	}
	if body.Get("status_code").Int() != 0 {
		return gjson.Result{}, live.ErrRoomNotExist
	}
	data := body.Get("data")
	if !data.Get("data.0").Exists() {
		return gjson.Result{}, live.ErrRoomNotExist
	}
	return data, nil
}

func (a *Adapter) IsLive(ctx context.Context, roomID string) (bool, error) {
	data, err := a.enter(ctx, roomID, nil)
	if err != nil {
		return false, err
	}
	return data.Get("data.0.status").Int() == statusLive, nil
}

func (a *Adapter) FetchMetadata(ctx context.Context, roomID string) (*live.RoomMetadata, error) {
	data, err := a.enter(ctx, roomID, nil)
	if err != nil {
		return nil, err
	}
	room := data.Get("data.0")
	meta := &live.RoomMetadata{
		RoomID:     roomID,
		Title:      room.Get("title").String(),
		Cover:      room.Get("cover.url_list.0").String(),
		UserID:     data.Get("user.id_str").String(),
		UserName:   data.Get("user.nickname").String(),
		UserAvatar: data.Get("user.avatar_thumb.url_list.0").String(),
		Live:       room.Get("status").Int() == statusLive,
	}
	if ts := room.Get("create_time").Int(); ts > 0 && meta.Live {
		meta.StartTime = time.Unix(ts, 0)
	}
	return meta, nil
}

func (a *Adapter) ResolveStream(ctx context.Context, roomID string, cred *credential.Credential) (live.Stream, error) {
	data, err := a.enter(ctx, roomID, cred)
	if err != nil {
		return nil, err
	}
	room := data.Get("data.0")
	if room.Get("status").Int() != statusLive {
		return nil, live.ErrStreamUnavailable
	}
	var playlistURL string
	urls := room.Get("stream_url.hls_pull_url_map")
	for _, q := range qualities {
		if u := urls.Get(q).String(); u != "" {
			playlistURL = u
			break
		}
	}
	if playlistURL == "" {
		playlistURL = room.Get("stream_url.hls_pull_url").String()
	}
	if playlistURL == "" {
		return nil, live.ErrStreamUnavailable
	}
	header := http.Header{}
	header.Set("Referer", a.host+"/"+roomID)
	return hls.Open(ctx, a.Client, playlistURL,
		hls.WithHeader(header),
		hls.WithLogger(a.Logger.WithField("room", roomID)),
	)
}
