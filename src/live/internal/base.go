package internal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hr3lxphr6j/requests"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/live/credential"
)

// BaseAdapter 各平台适配器共用的部分
type BaseAdapter struct {
	Options        *live.Options
	Client         *http.Client
	RequestSession *requests.Session
	Logger         *logrus.Entry
}

func NewBaseAdapter(p live.Platform, opts *live.Options) BaseAdapter {
	if opts == nil {
		opts = live.NewOptions()
	}
	return BaseAdapter{
		Options:        opts,
		Client:         opts.Client,
		RequestSession: requests.NewSession(opts.Client),
		Logger:         opts.Logger.WithField("platform", p.String()),
	}
}

// GetBody 发起 GET 请求并返回响应体，非 200 时返回错误
func (a *BaseAdapter) GetBody(ctx context.Context, url string, opts ...requests.RequestOption) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = append([]requests.RequestOption{live.CommonUserAgent}, opts...)
	resp, err := a.RequestSession.Get(url, opts...)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}
	return resp.Bytes()
}

func (a *BaseAdapter) GetJSON(ctx context.Context, url string, opts ...requests.RequestOption) (gjson.Result, error) {
	body, err := a.GetBody(ctx, url, opts...)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid json from %s", url)
	}
	return gjson.ParseBytes(body), nil
}

// NoSend 给不支持发送弹幕的平台使用
type NoSend struct{}

func (NoSend) SendMessage(ctx context.Context, cred *credential.Credential, roomID, text string) error {
	return live.ErrNotSupported
}

// NoChat 给不支持弹幕的平台使用
type NoChat struct{}

func (NoChat) SubscribeChat(ctx context.Context, roomID string) (live.ChatSubscription, error) {
	return nil, live.ErrNotSupported
}
