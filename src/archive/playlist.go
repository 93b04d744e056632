package archive

import (
	"fmt"
	"math"
	"strings"
)

// BuildPlaylist 由已提交的分片生成 m3u8，相同的分片总是得到相同的输出
func (j *Journal) BuildPlaylist() (string, error) {
	segs, err := j.Segments()
	if err != nil {
		return "", err
	}
	return renderPlaylist(segs, j.IsClosed()), nil
}

func renderPlaylist(segs []*Segment, ended bool) string {
	target := 1.0
	for _, seg := range segs {
		target = math.Max(target, math.Ceil(seg.Duration))
	}
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", int(target))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	if !ended {
		b.WriteString("#EXT-X-PLAYLIST-TYPE:EVENT\n")
	}
	for _, seg := range segs {
		if seg.Discontinuity {
			b.WriteString("#EXT-X-DISCONTINUITY\n")
		}
		fmt.Fprintf(&b, "#EXTINF:%.3f,\n%s\n", seg.Duration, FileName(seg.Sequence))
	}
	if ended {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	return b.String()
}
