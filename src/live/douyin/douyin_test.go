package douyin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bililive-go/shadowreplay/src/live"
)

func newTestAdapter(t *testing.T, status int) *Adapter {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc(enterPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("web_rid") == "missing" {
			fmt.Fprint(w, `{"status_code":0,"data":{"data":[]}}`)
			return
		}
		fmt.Fprintf(w, `{"status_code":0,"data":{"data":[{"status":%d,"title":"抖音直播","create_time":1700000000,
			"cover":{"url_list":["c.jpg"]},
			"stream_url":{"hls_pull_url_map":{"HD1":"%s/hd.m3u8","SD1":"%s/sd.m3u8"}}}],
			"user":{"id_str":"88","nickname":"抖音主播","avatar_thumb":{"url_list":["a.jpg"]}}}}`, status, srv.URL, srv.URL)
	})
	mux.HandleFunc("/hd.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXTINF:2,\nhd0.ts\n")
	})
	mux.HandleFunc("/hd0.ts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "HD")
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := New(live.NewOptions(live.WithClient(srv.Client())))
	a.host = srv.URL
	return a
}

func TestDouyinMetadata(t *testing.T) {
	a := newTestAdapter(t, statusLive)
	ok, err := a.IsLive(context.Background(), "123")
	require.NoError(t, err)
	assert.True(t, ok)

	meta, err := a.FetchMetadata(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "抖音直播", meta.Title)
	assert.Equal(t, "抖音主播", meta.UserName)
	assert.Equal(t, "88", meta.UserID)
	assert.Equal(t, "c.jpg", meta.Cover)
	assert.False(t, meta.StartTime.IsZero())

	_, err = a.FetchMetadata(context.Background(), "missing")
	assert.ErrorIs(t, err, live.ErrRoomNotExist)
}

func TestDouyinResolveStreamPrefersHighestQuality(t *testing.T) {
	a := newTestAdapter(t, statusLive)
	s, err := a.ResolveStream(context.Background(), "123", nil)
	require.NoError(t, err)
	c, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HD", string(c.Data))
}

func TestDouyinOffline(t *testing.T) {
	a := newTestAdapter(t, 4)
	ok, err := a.IsLive(context.Background(), "123")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.ResolveStream(context.Background(), "123", nil)
	assert.ErrorIs(t, err, live.ErrStreamUnavailable)

	_, err = a.SubscribeChat(context.Background(), "123")
	assert.ErrorIs(t, err, live.ErrNotSupported)
	assert.ErrorIs(t, a.SendMessage(context.Background(), nil, "123", "hi"), live.ErrNotSupported)
}
