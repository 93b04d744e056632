package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hr3lxphr6j/requests"
	"github.com/tidwall/gjson"

	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/live/credential"
	"github.com/bililive-go/shadowreplay/src/live/hls"
	"github.com/bililive-go/shadowreplay/src/live/internal"
)

const (
	roomInitUrl    = "https://api.live.bilibili.com/room/v1/Room/room_init"
	roomApiUrl     = "https://api.live.bilibili.com/room/v1/Room/get_info"
	userApiUrl     = "https://api.live.bilibili.com/live_user/v1/UserInfo/get_anchor_in_room"
	liveApiUrlv2   = "https://api.live.bilibili.com/xlive/web-room/v2/index/getRoomPlayInfo"
	danmuInfoUrl   = "https://api.live.bilibili.com/xlive/web-room/v1/index/getDanmuInfo"
	sendMessageUrl = "https://api.live.bilibili.com/msg/send"
	liveRoomUrl    = "https://live.bilibili.com/"
)

func init() {
	live.Register(live.BiliBili, new(builder))
}

type builder struct{}

func (b *builder) Build(opts *live.Options) (live.Adapter, error) {
	return New(opts), nil
}

type Adapter struct {
	internal.BaseAdapter
	// API 地址，测试时替换
	apiBase string

	realIDs sync.Map
}

func New(opts *live.Options) *Adapter {
	return &Adapter{
		BaseAdapter: internal.NewBaseAdapter(live.BiliBili, opts),
	}
}

func (a *Adapter) Platform() live.Platform {
	return live.BiliBili
}

func (a *Adapter) api(u string) string {
	if a.apiBase == "" {
		return u
	}
	return strings.Replace(u, "https://api.live.bilibili.com", a.apiBase, 1)
}

// realRoomID 短号转换为真实房间号
func (a *Adapter) realRoomID(ctx context.Context, roomID string) (string, error) {
	if v, ok := a.realIDs.Load(roomID); ok {
		return v.(string), nil
	}
	body, err := a.GetJSON(ctx, a.api(roomInitUrl), requests.Query("id", roomID))
	if err != nil {
		return "", err
	}
	if body.Get("code").Int() != 0 {
		return "", live.ErrRoomNotExist
	}
	realID := body.Get("data.room_id").String()
	if realID == "" {
		return "", live.ErrRoomNotExist
	}
	a.realIDs.Store(roomID, realID)
	return realID, nil
}

func (a *Adapter) roomInfo(ctx context.Context, roomID string) (string, gjson.Result, error) {
	realID, err := a.realRoomID(ctx, roomID)
	if err != nil {
		return "", gjson.Result{}, err
	}
	body, err := a.GetJSON(ctx, a.api(roomApiUrl),
		requests.Query("room_id", realID),
		requests.Query("from", "room"),
	)
	if err != nil {
		return "", gjson.Result{}, err
	}
	if body.Get("code").Int() != 0 {
		return "", gjson.Result{}, live.ErrRoomNotExist
	}
	return realID, body.Get("data"), nil
}

func (a *Adapter) IsLive(ctx context.Context, roomID string) (bool, error) {
	_, data, err := a.roomInfo(ctx, roomID)
	if err != nil {
		return false, err
	}
	return data.Get("live_status").Int() == 1, nil
}

func (a *Adapter) FetchMetadata(ctx context.Context, roomID string) (*live.RoomMetadata, error) {
	realID, data, err := a.roomInfo(ctx, roomID)
	if err != nil {
		return nil, err
	}
	meta := &live.RoomMetadata{
		RoomID: realID,
		Title:  data.Get("title").String(),
		Cover:  data.Get("user_cover").String(),
		UserID: data.Get("uid").String(),
		Live:   data.Get("live_status").Int() == 1,
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", data.Get("live_time").String(), time.Local); err == nil {
		meta.StartTime = t
	}

	body, err := a.GetJSON(ctx, a.api(userApiUrl), requests.Query("roomid", realID))
	if err != nil {
		return nil, err
	}
	if code := body.Get("code").Int(); code != 0 {
		return nil, fmt.Errorf("error code %d from user api", code)
	}
	meta.UserName = body.Get("data.info.uname").String()
	meta.UserAvatar = body.Get("data.info.face").String()
	return meta, nil
}

func (a *Adapter) ResolveStream(ctx context.Context, roomID string, cred *credential.Credential) (live.Stream, error) {
	realID, err := a.realRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	opts := []requests.RequestOption{
		requests.Query("room_id", realID),
		requests.Query("protocol", "1"),
		requests.Query("format", "1"),
		requests.Query("codec", "0"),
		requests.Query("qn", "10000"),
		requests.Query("platform", "web"),
		requests.Query("ptype", "8"),
	}
	if cred != nil {
		opts = append(opts, requests.Cookies(cred.CookieMap()))
	}
	body, err := a.GetJSON(ctx, a.api(liveApiUrlv2), opts...)
	if err != nil {
		return nil, err
	}
	if body.Get("code").Int() != 0 {
		return nil, live.ErrRoomNotExist
	}
	playlistURL := pickHLS(body.Get("data.playurl_info.playurl.stream"))
	if playlistURL == "" {
		return nil, live.ErrStreamUnavailable
	}
	header := http.Header{}
	header.Set("Referer", liveRoomUrl+realID)
	header.Set("User-Agent", live.UserAgent())
	return hls.Open(ctx, a.Client, playlistURL,
		hls.WithHeader(header),
		hls.WithLogger(a.Logger.WithField("room", roomID)),
	)
}

// pickHLS 选择 http_hls 协议下 ts 封装的第一个可用地址
func pickHLS(streams gjson.Result) string {
	var result string
	streams.ForEach(func(_, stream gjson.Result) bool {
		if stream.Get("protocol_name").String() != "http_hls" {
			return true
		}
		stream.Get("format").ForEach(func(_, format gjson.Result) bool {
			if format.Get("format_name").String() != "ts" {
				return true
			}
			format.Get("codec").ForEach(func(_, codec gjson.Result) bool {
				baseURL := codec.Get("base_url").String()
				codec.Get("url_info").ForEach(func(_, info gjson.Result) bool {
					host := info.Get("host").String()
					if host != "" && baseURL != "" {
						result = host + baseURL + info.Get("extra").String()
						return false
					}
					return true
				})
				return result == ""
			})
			return result == ""
		})
		return result == ""
	})
	return result
}

func (a *Adapter) SendMessage(ctx context.Context, cred *credential.Credential, roomID, text string) error {
	if cred == nil || cred.CSRF == "" {
		return live.ErrCredentialsRequired
	}
	realID, err := a.realRoomID(ctx, roomID)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("bubble", "0")
	form.Set("msg", text)
	form.Set("color", "16777215")
	form.Set("mode", "1")
	form.Set("fontsize", "25")
	form.Set("rnd", strconv.FormatInt(time.Now().Unix(), 10))
	form.Set("roomid", realID)
	form.Set("csrf", cred.CSRF)
	form.Set("csrf_token", cred.CSRF)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.api(sendMessageUrl), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", live.UserAgent())
	req.Header.Set("Referer", liveRoomUrl+realID)
	req.Header.Set("Cookie", cred.Cookies)
	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d from msg/send", resp.StatusCode)
	}
	if code := gjson.GetBytes(body, "code").Int(); code != 0 {
		return fmt.Errorf("send message failed: code %d, %s", code, gjson.GetBytes(body, "message").String())
	}
	return nil
}

func (a *Adapter) SubscribeChat(ctx context.Context, roomID string) (live.ChatSubscription, error) {
	realID, err := a.realRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	body, err := a.GetJSON(ctx, a.api(danmuInfoUrl), requests.Query("id", realID), requests.Query("type", "0"))
	if err != nil {
		return nil, err
	}
	token := body.Get("data.token").String()
	host := "broadcastlv.chat.bilibili.com"
	port := int64(443)
	if h := body.Get("data.host_list.0"); h.Exists() {
		host = h.Get("host").String()
		if p := h.Get("wss_port").Int(); p > 0 {
			port = p
		}
	}
	rid, err := strconv.ParseInt(realID, 10, 64)
	if err != nil {
		return nil, live.ErrRoomNotExist
	}
	auth, err := json.Marshal(authBody{
		RoomID:   rid,
		ProtoVer: 2,
		Platform: "web",
		Type:     2,
		Key:      token,
	})
	if err != nil {
		return nil, err
	}
	wsURL := fmt.Sprintf("wss://%s:%d/sub", host, port)
	return dialChat(ctx, wsURL, liveRoomUrl, auth, a.Logger.WithField("room", roomID))
}
