package transcoder

import (
	"bufio"
	"io"
	"strings"
)

type EventKind int

const (
	EventProgress EventKind = iota
	EventError
	EventEOF
)

// Event ffmpeg 输出中解析出的事件，Time 仅对 EventProgress 有效
type Event struct {
	Kind    EventKind
	Time    string
	Message string
}

// ParseLine 解析 -progress 输出与 level 前缀的日志行，无关的行返回 false
func ParseLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if v, ok := strings.CutPrefix(line, "out_time="); ok {
		return Event{Kind: EventProgress, Time: v}, true
	}
	for _, level := range []string{"[error] ", "[fatal] "} {
		if i := strings.Index(line, level); i >= 0 {
			return Event{Kind: EventError, Message: strings.TrimSpace(line[i+len(level):])}, true
		}
	}
	return Event{}, false
}

// Events 逐行读取 r，读到结尾时发送 EventEOF 并关闭通道
func Events(r io.Reader) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			if ev, ok := ParseLine(sc.Text()); ok {
				ch <- ev
			}
		}
		ch <- Event{Kind: EventEOF}
	}()
	return ch
}
