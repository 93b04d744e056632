package servers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bililive-go/shadowreplay/src/danmu"
	"github.com/bililive-go/shadowreplay/src/database"
	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/pkg/livelogger"
	"github.com/bililive-go/shadowreplay/src/recorders"
)

// SSEEventType SSE 事件类型
type SSEEventType string

const (
	// SSEEventRecorderStatus 录制器状态更新
	SSEEventRecorderStatus SSEEventType = "recorder_status"
	// SSEEventDanmu 实时弹幕
	SSEEventDanmu SSEEventType = "danmu"
	// SSEEventLog 日志更新
	SSEEventLog SSEEventType = "log"
	// SSEEventListChange 直播间列表变更
	SSEEventListChange SSEEventType = "list_change"
	// SSEEventMessage 新的站内消息
	SSEEventMessage SSEEventType = "message"
	// SSEEventClipProgress 切片进度
	SSEEventClipProgress SSEEventType = "clip_progress"
)

// SSEMessage SSE 消息结构，RoomID 形如 bilibili/123
type SSEMessage struct {
	Type   SSEEventType `json:"type"`
	RoomID string       `json:"room_id"`
	Data   any          `json:"data"`
}

// SSEHub 管理所有 SSE 连接
type SSEHub struct {
	mu      sync.RWMutex
	clients map[chan SSEMessage]struct{}
	closeCh chan struct{}
	closed  bool
}

var (
	sseHub     *SSEHub
	sseHubOnce sync.Once
)

// GetSSEHub 获取全局 SSE Hub 单例
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		sseHub = NewSSEHub()
	})
	return sseHub
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[chan SSEMessage]struct{}),
		closeCh: make(chan struct{}),
	}
}

func roomKey(platform, roomID string) string {
	return platform + "/" + roomID
}

// AddClient 添加一个 SSE 客户端，hub 已关闭时返回 false
func (h *SSEHub) AddClient(ch chan SSEMessage) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[ch] = struct{}{}
	return true
}

// RemoveClient 移除一个 SSE 客户端
func (h *SSEHub) RemoveClient(ch chan SSEMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// Broadcast 向所有客户端广播消息，客户端缓冲已满时丢弃
func (h *SSEHub) Broadcast(msg SSEMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *SSEHub) BroadcastRecorderStatus(info *recorders.RecorderInfo) {
	h.Broadcast(SSEMessage{
		Type:   SSEEventRecorderStatus,
		RoomID: roomKey(info.Platform, info.RoomID),
		Data:   info,
	})
}

func (h *SSEHub) BroadcastDanmu(platform live.Platform, roomID string, e danmu.Entry) {
	h.Broadcast(SSEMessage{
		Type:   SSEEventDanmu,
		RoomID: roomKey(platform.String(), roomID),
		Data:   e,
	})
}

func (h *SSEHub) BroadcastLog(key, line string) {
	h.Broadcast(SSEMessage{
		Type:   SSEEventLog,
		RoomID: key,
		Data:   line,
	})
}

// BroadcastListChange changeType 为 added 或 removed
func (h *SSEHub) BroadcastListChange(platform, roomID, changeType string, data any) {
	h.Broadcast(SSEMessage{
		Type:   SSEEventListChange,
		RoomID: roomKey(platform, roomID),
		Data: map[string]any{
			"change_type": changeType,
			"data":        data,
		},
	})
}

func (h *SSEHub) BroadcastMessage(m *database.Message) {
	h.Broadcast(SSEMessage{
		Type: SSEEventMessage,
		Data: m,
	})
}

func (h *SSEHub) BroadcastClipProgress(platform, roomID, liveID, text string) {
	h.Broadcast(SSEMessage{
		Type:   SSEEventClipProgress,
		RoomID: roomKey(platform, roomID),
		Data: map[string]any{
			"live_id":  liveID,
			"progress": text,
		},
	})
}

// ClientCount 获取当前连接的客户端数量
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 关闭所有 SSE 连接
func (h *SSEHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.closeCh)
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}
}

// Done 返回关闭信号 channel
func (h *SSEHub) Done() <-chan struct{} {
	return h.closeCh
}

// RegisterSSEBroadcasters 把录制器状态、弹幕与直播间日志接入 hub
func RegisterSSEBroadcasters(hub *SSEHub) {
	recorders.SetBroadcastRecorderStatusFunc(hub.BroadcastRecorderStatus)
	recorders.SetOnDanmuFunc(hub.BroadcastDanmu)
	livelogger.SetLogCallback(hub.BroadcastLog)
}

func sseHandler(hub *SSEHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		clientCh := make(chan SSEMessage, 100)
		if !hub.AddClient(clientCh) {
			http.Error(w, "server closed", http.StatusServiceUnavailable)
			return
		}

		fmt.Fprintf(w, "event: connected\ndata: {\"message\":\"SSE connected\",\"clients\":%d}\n\n", hub.ClientCount())
		flusher.Flush()

		heartbeatTicker := time.NewTicker(30 * time.Second)
		defer heartbeatTicker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				hub.RemoveClient(clientCh)
				return

			case <-hub.Done():
				return

			case <-heartbeatTicker.C:
				fmt.Fprintf(w, ":heartbeat\n\n")
				flusher.Flush()

			case msg, ok := <-clientCh:
				if !ok {
					return
				}
				data, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data)
				flusher.Flush()
			}
		}
	}
}
