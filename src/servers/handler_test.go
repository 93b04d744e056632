package servers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bililive-go/shadowreplay/src/archive"
	"github.com/bililive-go/shadowreplay/src/clip"
	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/database"
	"github.com/bililive-go/shadowreplay/src/instance"
	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/pkg/transcoder"
	"github.com/bililive-go/shadowreplay/src/recorders"
)

type fakeRecorder struct {
	recorders.Recorder
	info *recorders.RecorderInfo
}

func (r *fakeRecorder) Info() *recorders.RecorderInfo { return r.info }

// fakeManager 只实现测试用到的方法
type fakeManager struct {
	recorders.Manager
	rooms   map[string]*recorders.RecorderInfo
	addErr  error
	removed []string
}

func newFakeManager() *fakeManager {
	return &fakeManager{rooms: make(map[string]*recorders.RecorderInfo)}
}

func (m *fakeManager) AddRecorder(_ context.Context, platform live.Platform, _ *database.Account, roomID string) (recorders.Recorder, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	key := platform.String() + "/" + roomID
	if _, ok := m.rooms[key]; ok {
		return nil, recorders.ErrAlreadyExists
	}
	info := &recorders.RecorderInfo{Platform: platform.String(), RoomID: roomID, State: "idle"}
	m.rooms[key] = info
	return &fakeRecorder{info: info}, nil
}

func (m *fakeManager) RemoveRecorder(_ context.Context, platform live.Platform, roomID string) error {
	key := platform.String() + "/" + roomID
	if _, ok := m.rooms[key]; !ok {
		return recorders.ErrNotFound
	}
	delete(m.rooms, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *fakeManager) GetRecorderInfo(platform live.Platform, roomID string) (*recorders.RecorderInfo, bool) {
	info, ok := m.rooms[platform.String()+"/"+roomID]
	return info, ok
}

func (m *fakeManager) GetRecorderList() []*recorders.RecorderInfo {
	list := make([]*recorders.RecorderInfo, 0, len(m.rooms))
	for _, info := range m.rooms {
		list = append(list, info)
	}
	return list
}

func (m *fakeManager) RecorderCount() map[string]int {
	counts := make(map[string]int)
	for _, info := range m.rooms {
		counts[info.Platform]++
	}
	return counts
}

func (m *fakeManager) M3U8Content(_ live.Platform, _, liveID string) (string, error) {
	if liveID != "100" {
		return "", archive.ErrSessionNotFound
	}
	return "#EXTM3U\n#EXT-X-ENDLIST\n", nil
}

func (m *fakeManager) ClipRange(context.Context, live.Platform, string, string, float64, float64, string, transcoder.ProgressFunc) (string, error) {
	return "", clip.ErrInvalidRange
}

type testServer struct {
	handler http.Handler
	manager *fakeManager
	db      *database.SQLiteStore
	inst    *instance.Instance
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := newFakeManager()
	inst := instance.New()
	inst.Database = db
	inst.RecorderManager = m
	ctx := instance.WithInstance(context.Background(), inst)
	return &testServer{
		handler: initMux(ctx, NewSSEHub()),
		manager: m,
		db:      db,
		inst:    inst,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, commonResp) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	var resp commonResp
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestAddAndRemoveRecorder(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, "POST", "/api/recorders", `{"platform":"bilibili","room_id":"1030"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rows, err := s.db.GetRecorders(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1030", rows[0].RoomID)

	messages, err := s.db.GetMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "添加直播间", messages[0].Title)
	assert.Equal(t, "添加了新直播间 1030", messages[0].Content)

	rec, _ = s.do(t, "POST", "/api/recorders", `{"platform":"bilibili","room_id":"1030"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, "DELETE", "/api/recorders/bilibili/1030", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"bilibili/1030"}, s.manager.removed)
	rows, err = s.db.GetRecorders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)

	rec, _ = s.do(t, "DELETE", "/api/recorders/bilibili/1030", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddRecorderBadRequest(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, "POST", "/api/recorders", `{"platform":"twitch","room_id":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, "POST", "/api/recorders", `{"platform":"bilibili"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, "POST", "/api/recorders", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.manager.addErr = fmt.Errorf("%w: %w", recorders.ErrPlatformRejected, live.ErrRoomNotExist)
	rec, resp := s.do(t, "POST", "/api/recorders", `{"platform":"bilibili","room_id":"404"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, http.StatusBadGateway, resp.ErrNo)
	rows, err := s.db.GetRecorders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetRecorderNotFound(t *testing.T) {
	s := newTestServer(t)
	rec, resp := s.do(t, "GET", "/api/recorders/bilibili/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", resp.ErrMsg)
}

func TestPlaylist(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, "GET", "/api/recorders/bilibili/1/archives/100/playlist.m3u8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "#EXT-X-ENDLIST")

	rec, _ = s.do(t, "GET", "/api/recorders/bilibili/1/archives/200/playlist.m3u8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClipInvalidRange(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, "POST", "/api/recorders/bilibili/1/archives/100/clip", `{"start":40,"end":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountsAndMessages(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, "POST", "/api/accounts", `{"platform":"bilibili","cookies":"SESSDATA=x; bili_jct=token; DedeUserID=42"}`)
	require.Equal(t, http.StatusOK, rec.Code, resp.ErrMsg)
	rec, _ = s.do(t, "POST", "/api/accounts", `{"platform":"bilibili","cookies":"SESSDATA=x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, "PUT", "/api/accounts/bilibili/42", `{"name":"主播","avatar":"a.png"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	account, err := s.db.GetAccount(context.Background(), "bilibili", 42)
	require.NoError(t, err)
	assert.Equal(t, "主播", account.Name)

	rec, _ = s.do(t, "DELETE", "/api/accounts/bilibili/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, "DELETE", "/api/accounts/bilibili/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	m, err := s.db.NewMessage(context.Background(), "title", "content")
	require.NoError(t, err)
	rec, _ = s.do(t, "PUT", fmt.Sprintf("/api/messages/%d/read", m.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	messages, err := s.db.GetMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Read)

	rec, _ = s.do(t, "DELETE", fmt.Sprintf("/api/messages/%d", m.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, "DELETE", fmt.Sprintf("/api/messages/%d", m.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTotalLengthCached(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	rec, err := s.db.AddRecord(ctx, "bilibili", "1", "100", "title", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.db.UpdateRecord(ctx, rec.LiveID, 30, 1024))

	resp, body := s.do(t, "GET", "/api/stats/total_length", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(30), body.Data)

	require.NoError(t, s.db.UpdateRecord(ctx, rec.LiveID, 60, 2048))
	_, body = s.do(t, "GET", "/api/stats/total_length", "")
	assert.Equal(t, float64(30), body.Data)

	_, body = s.do(t, "GET", "/api/stats/today_count", "")
	assert.Equal(t, float64(1), body.Data)
}

func TestSystemStats(t *testing.T) {
	s := newTestServer(t)
	rec, resp := s.do(t, "GET", "/api/stats/system", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data, "runtime")
	assert.Contains(t, data, "self")
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	s.manager.rooms["bilibili/1"] = &recorders.RecorderInfo{Platform: "bilibili", RoomID: "1"}

	rec, _ := s.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrap: %w", recorders.ErrNotFound), http.StatusNotFound},
		{archive.ErrSessionNotFound, http.StatusNotFound},
		{clip.ErrOutputExists, http.StatusConflict},
		{recorders.ErrArchiveActive, http.StatusConflict},
		{clip.ErrDiscontinuousRange, http.StatusBadRequest},
		{live.ErrCredentialsRequired, http.StatusBadRequest},
		{live.ErrNotSupported, http.StatusNotImplemented},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, statusCode(c.err), c.err.Error())
	}
}

func TestResolveClipPath(t *testing.T) {
	dir := t.TempDir()
	cfg := configs.NewConfig()
	cfg.Clip.OutPutPath = dir
	old := configs.GetCurrentConfig()
	configs.SetCurrentConfig(cfg)
	t.Cleanup(func() { configs.SetCurrentConfig(old) })

	p, err := resolveClipPath("a/b.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a", "b.mp4"), p)

	_, err = resolveClipPath("../escape.mp4")
	assert.ErrorIs(t, err, errInvalidPath)
	_, err = resolveClipPath("")
	assert.ErrorIs(t, err, errInvalidPath)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "exists.mp4"), nil, 0o644))
	assert.ErrorIs(t, checkOutput(filepath.Join(dir, "exists.mp4")), clip.ErrOutputExists)
	assert.NoError(t, checkOutput(filepath.Join(dir, "new.mp4")))
}

func TestSSEHub(t *testing.T) {
	hub := NewSSEHub()
	ch := make(chan SSEMessage, 4)
	require.True(t, hub.AddClient(ch))
	assert.Equal(t, 1, hub.ClientCount())

	hub.BroadcastClipProgress("bilibili", "1", "100", "50%")
	msg := <-ch
	assert.Equal(t, SSEEventClipProgress, msg.Type)
	assert.Equal(t, "bilibili/1", msg.RoomID)

	hub.Close()
	_, ok := <-ch
	assert.False(t, ok)
	assert.False(t, hub.AddClient(make(chan SSEMessage, 1)))
	select {
	case <-hub.Done():
	default:
		t.Fatal("hub not closed")
	}
}

func TestSSEHandler(t *testing.T) {
	hub := NewSSEHub()
	srv := httptest.NewServer(sseHandler(hub))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	assert.Equal(t, "event: connected", scanner.Text())

	hub.BroadcastListChange("bilibili", "1", "added", nil)
	found := false
	for scanner.Scan() {
		if scanner.Text() == "event: list_change" {
			found = true
			break
		}
	}
	assert.True(t, found)
	hub.Close()
}
