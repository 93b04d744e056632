package bilibili

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/net/websocket"

	"github.com/bililive-go/shadowreplay/src/live"
)

// 弹幕服务器的二进制协议
const (
	headerLen = 16

	opHeartbeat      = 2
	opHeartbeatReply = 3
	opMessage        = 5
	opAuth           = 7
	opAuthReply      = 8

	protoJSON = 0
	protoZlib = 2

	heartbeatInterval = 30 * time.Second
)

var ErrChatClosed = errors.New("bilibili chat closed")

type authBody struct {
	UID      int64  `json:"uid"`
	RoomID   int64  `json:"roomid"`
	ProtoVer int    `json:"protover"`
	Platform string `json:"platform"`
	Type     int    `json:"type"`
	Key      string `json:"key,omitempty"`
}

type packet struct {
	ProtoVer uint16
	Op       uint32
	Body     []byte
}

func encodePacket(op uint32, body []byte) []byte {
	buf := make([]byte, headerLen+len(body))
	binary.BigEndian.PutUint32(buf[0:], uint32(len(buf)))
	binary.BigEndian.PutUint16(buf[4:], headerLen)
	binary.BigEndian.PutUint16(buf[6:], 1)
	binary.BigEndian.PutUint32(buf[8:], op)
	binary.BigEndian.PutUint32(buf[12:], 1)
	copy(buf[headerLen:], body)
	return buf
}

// decodePackets 拆分一个 websocket 帧中的所有包，zlib 压缩的包会被展开
func decodePackets(data []byte) ([]packet, error) {
	var out []packet
	for len(data) > 0 {
		if len(data) < headerLen {
			return nil, fmt.Errorf("short packet: %d bytes", len(data))
		}
		total := binary.BigEndian.Uint32(data[0:])
		hl := binary.BigEndian.Uint16(data[4:])
		if total < uint32(hl) || int(total) > len(data) || hl < headerLen {
			return nil, fmt.Errorf("malformed packet header: len=%d header=%d", total, hl)
		}
		p := packet{
			ProtoVer: binary.BigEndian.Uint16(data[6:]),
			Op:       binary.BigEndian.Uint32(data[8:]),
			Body:     data[hl:total],
		}
		data = data[total:]

		if p.Op == opMessage && p.ProtoVer == protoZlib {
			r, err := zlib.NewReader(bytes.NewReader(p.Body))
			if err != nil {
				return nil, err
			}
			inner, err := io.ReadAll(r)
			r.Close()
			if err != nil {
				return nil, err
			}
			nested, err := decodePackets(inner)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// parseDanmu 只关心 DANMU_MSG，其他命令返回 false
func parseDanmu(body []byte) (*live.ChatEvent, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	msg := gjson.ParseBytes(body)
	cmd := msg.Get("cmd").String()
	if cmd != "DANMU_MSG" && !strings.HasPrefix(cmd, "DANMU_MSG:") {
		return nil, false
	}
	info := msg.Get("info")
	ev := &live.ChatEvent{
		UID:    info.Get("2.0").String(),
		Sender: info.Get("2.1").String(),
		Text:   info.Get("1").String(),
		Raw:    append([]byte(nil), body...),
	}
	if ts := info.Get("0.4").Int(); ts > 0 {
		ev.SentAt = time.UnixMilli(ts)
	}
	return ev, true
}

type chatSubscription struct {
	conn   *websocket.Conn
	logger *logrus.Entry
	events chan *live.ChatEvent
	done   chan struct{}

	mu   sync.Mutex
	err  error
	once sync.Once
}

func dialChat(ctx context.Context, wsURL, origin string, auth []byte, logger *logrus.Entry) (*chatSubscription, error) {
	cfg, err := websocket.NewConfig(wsURL, origin)
	if err != nil {
		return nil, err
	}
	cfg.Header.Set("User-Agent", live.UserAgent())
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := websocket.Message.Send(conn, encodePacket(opAuth, auth)); err != nil {
		conn.Close()
		return nil, err
	}
	s := &chatSubscription{
		conn:   conn,
		logger: logger,
		events: make(chan *live.ChatEvent, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	go s.heartbeatLoop()
	return s, nil
}

func (s *chatSubscription) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *chatSubscription) readLoop() {
	for {
		var frame []byte
		if err := websocket.Message.Receive(s.conn, &frame); err != nil {
			s.fail(err)
			return
		}
		packets, err := decodePackets(frame)
		if err != nil {
			s.logger.WithError(err).Warn("无法解析弹幕数据包")
			continue
		}
		for _, p := range packets {
			switch p.Op {
			case opAuthReply:
				if code := gjson.GetBytes(p.Body, "code").Int(); code != 0 {
					s.fail(fmt.Errorf("danmu auth rejected: code %d", code))
					return
				}
				s.logger.Debug("弹幕服务器认证成功")
			case opMessage:
				ev, ok := parseDanmu(p.Body)
				if !ok {
					continue
				}
				select {
				case s.events <- ev:
				case <-s.done:
					return
				}
			}
		}
	}
}

func (s *chatSubscription) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := websocket.Message.Send(s.conn, encodePacket(opHeartbeat, []byte("[object Object]"))); err != nil {
				s.fail(err)
				return
			}
		}
	}
}

func (s *chatSubscription) Next(ctx context.Context) (*live.ChatEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		// 先把已经收到的弹幕交出去
		select {
		case ev := <-s.events:
			return ev, nil
		default:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return nil, s.err
	}
}

func (s *chatSubscription) Close() error {
	s.fail(ErrChatClosed)
	return nil
}
