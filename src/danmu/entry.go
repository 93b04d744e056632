package danmu

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bililive-go/shadowreplay/src/live"
)

// Entry 一条落盘的弹幕，Timestamp 为到达时间
type Entry struct {
	UID       string          `json:"uid"`
	Sender    string          `json:"sender"`
	Text      string          `json:"text"`
	Timestamp time.Time       `json:"ts"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

func FromEvent(ev *live.ChatEvent) Entry {
	return Entry{
		UID:    ev.UID,
		Sender: ev.Sender,
		Text:   ev.Text,
		Raw:    ev.Raw,
	}
}

// Sink 弹幕的持久化目标
type Sink interface {
	AppendDanmu(ctx context.Context, entries ...Entry) error
}
