package recorders

import (
	"github.com/bililive-go/shadowreplay/src/live"
)

type State uint32

const (
	StateIdle State = iota
	StateConnecting
	StateRecording
	StateStopping
	StateStopped
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateConnecting: "connecting",
	StateRecording:  "recording",
	StateStopping:   "stopping",
	StateStopped:    "stopped",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// 录制结束原因
const (
	EndReasonNormal         = "normal"
	EndReasonUserStop       = "user_stop"
	EndReasonError          = "error"
	EndReasonWriteError     = "write_error"
	EndReasonRetryExhausted = "retry_exhausted"
	// EndReasonInterrupted 进程退出时未关闭，下次启动时补上
	EndReasonInterrupted = "interrupted"
)

type RoomInfo struct {
	RoomID    string `json:"room_id"`
	RoomTitle string `json:"room_title"`
	RoomCover string `json:"room_cover"`
}

type UserInfo struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	UserAvatar string `json:"user_avatar"`
}

// RecorderInfo 录制器状态快照，读取时不访问网络
type RecorderInfo struct {
	RoomID   string   `json:"room_id"`
	RoomInfo RoomInfo `json:"room_info"`
	UserInfo UserInfo `json:"user_info"`
	// TotalLength 历史与当前会话的录制总时长（秒）
	TotalLength   float64 `json:"total_length"`
	CurrentLiveID string  `json:"current_live_id"`
	LiveStatus    bool    `json:"live_status"`
	Platform      string  `json:"platform"`
	State         string  `json:"state"`
}

func fillMetadata(info *RecorderInfo, meta *live.RoomMetadata) {
	if meta == nil {
		return
	}
	info.RoomInfo = RoomInfo{
		RoomID:    meta.RoomID,
		RoomTitle: meta.Title,
		RoomCover: meta.Cover,
	}
	info.UserInfo = UserInfo{
		UserID:     meta.UserID,
		UserName:   meta.UserName,
		UserAvatar: meta.UserAvatar,
	}
}
