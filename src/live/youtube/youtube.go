package youtube

import (
	"context"
	"errors"
	"regexp"
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
	defaultAPIHost = "https://www.googleapis.com"
	defaultWebHost = "https://www.youtube.com"
	searchPath     = "/youtube/v3/search"
	channelsPath   = "/youtube/v3/channels"
)

var (
	hlsManifestRe    = regexp.MustCompile(`"hlsManifestUrl":"(https?:[^"]+)"`)
	manifestReplacer = strings.NewReplacer(`\u0026`, "&", `\/`, "/")
)

func init() {
	live.Register(live.YouTube, new(builder))
}

type builder struct{}

func (b *builder) Build(opts *live.Options) (live.Adapter, error) {
	return New(opts), nil
}

// Adapter 房间号为频道 ID
type Adapter struct {
	internal.BaseAdapter
	internal.NoChat
	internal.NoSend
	apiHost string
	webHost string
}

func New(opts *live.Options) *Adapter {
	return &Adapter{
		BaseAdapter: internal.NewBaseAdapter(live.YouTube, opts),
		apiHost:     defaultAPIHost,
		webHost:     defaultWebHost,
	}
}

func (a *Adapter) Platform() live.Platform {
	return live.YouTube
}

// liveVideo 返回频道当前直播的视频，未开播时返回不存在的 Result
func (a *Adapter) liveVideo(ctx context.Context, channelID string) (gjson.Result, error) {
	if a.Options.APIKey == "" {
		return gjson.Result{}, live.ErrCredentialsRequired
	}
	body, err := a.GetJSON(ctx, a.apiHost+searchPath,
		requests.Query("part", "snippet"),
		requests.Query("channelId", channelID),
		requests.Query("eventType", "live"),
		requests.Query("type", "video"),
		requests.Query("key", a.Options.APIKey),
	)
	if err != nil {
		return gjson.Result{}, err
	}
	return body.Get("items.0"), nil
}

// watchManifest 从直播页面中提取 hlsManifestUrl
func (a *Adapter) watchManifest(ctx context.Context, channelID string, cred *credential.Credential) (string, error) {
	opts := []requests.RequestOption{}
	if cred != nil {
		opts = append(opts, requests.Cookies(cred.CookieMap()))
	}
	page, err := a.GetBody(ctx, a.webHost+"/channel/"+channelID+"/live", opts...)
	if err != nil {
		return "", err
	}
	m := hlsManifestRe.FindSubmatch(page)
	if m == nil {
		return "", nil
	}
	return manifestReplacer.Replace(string(m[1])), nil
}

func (a *Adapter) IsLive(ctx context.Context, roomID string) (bool, error) {
	video, err := a.liveVideo(ctx, roomID)
	if errors.Is(err, live.ErrCredentialsRequired) {
		manifest, err := a.watchManifest(ctx, roomID, nil)
		return manifest != "", err
	}
	if err != nil {
		return false, err
	}
	return video.Exists(), nil
}

func (a *Adapter) FetchMetadata(ctx context.Context, roomID string) (*live.RoomMetadata, error) {
	if a.Options.APIKey == "" {
		return nil, live.ErrCredentialsRequired
	}
	body, err := a.GetJSON(ctx, a.apiHost+channelsPath,
		requests.Query("part", "snippet"),
		requests.Query("id", roomID),
		requests.Query("key", a.Options.APIKey),
	)
	if err != nil {
		return nil, err
	}
	channel := body.Get("items.0")
	if !channel.Exists() {
		return nil, live.ErrRoomNotExist
	}
	meta := &live.RoomMetadata{
		RoomID:     roomID,
		UserID:     roomID,
		UserName:   channel.Get("snippet.title").String(),
		UserAvatar: channel.Get("snippet.thumbnails.default.url").String(),
	}
	video, err := a.liveVideo(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if video.Exists() {
		meta.Live = true
		meta.Title = video.Get("snippet.title").String()
		meta.Cover = video.Get("snippet.thumbnails.high.url").String()
		if t, err := time.Parse(time.RFC3339, video.Get("snippet.publishedAt").String()); err == nil {
			meta.StartTime = t
		}
	}
	return meta, nil
}

func (a *Adapter) ResolveStream(ctx context.Context, roomID string, cred *credential.Credential) (live.Stream, error) {
	manifest, err := a.watchManifest(ctx, roomID, cred)
	if err != nil {
		return nil, err
	}
	if manifest == "" {
		return nil, live.ErrStreamUnavailable
	}
	return hls.Open(ctx, a.Client, manifest, hls.WithLogger(a.Logger.WithField("room", roomID)))
}
