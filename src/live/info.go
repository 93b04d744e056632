package live

import (
	"encoding/json"
	"time"
)

// RoomMetadata 直播间与主播信息
type RoomMetadata struct {
	RoomID     string    `json:"room_id"`
	Title      string    `json:"room_title"`
	Cover      string    `json:"room_cover"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserAvatar string    `json:"user_avatar"`
	Live       bool      `json:"live_status"`
	StartTime  time.Time `json:"start_time,omitempty"`
}

// Chunk 一个下载完成的媒体分片，内容原样保存
type Chunk struct {
	Data []byte
	// Duration 分片时长（秒），来自播放列表的 EXTINF
	Duration float64
	// Timestamp 分片下载完成的时间
	Timestamp time.Time
	// Sequence 上游播放列表中的序号，仅用于诊断
	Sequence int64
	// Discontinuity 上游序号跳变或声明了不连续
	Discontinuity bool
}

// ChatEvent 平台推送的一条弹幕
type ChatEvent struct {
	UID    string `json:"uid"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	// SentAt 平台给出的发送时间，可能为零值
	SentAt time.Time       `json:"sent_at"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}
