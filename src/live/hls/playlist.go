package hls

import (
	"bufio"
	"bytes"
	"errors"
	"net/url"
	"strconv"
	"strings"
)

var ErrInvalidPlaylist = errors.New("invalid m3u8 playlist")

type Segment struct {
	Sequence      int64
	Duration      float64
	URI           string
	Discontinuity bool
}

type Variant struct {
	Bandwidth int64
	URI       string
}

type Playlist struct {
	Master         bool
	Variants       []Variant
	TargetDuration float64
	MediaSequence  int64
	Segments       []Segment
	// Ended 出现了 #EXT-X-ENDLIST
	Ended bool
}

// Parse 解析 m3u8，只处理录制需要的标签
func Parse(data []byte) (*Playlist, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	if !sc.Scan() || strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff")) != "#EXTM3U" {
		return nil, ErrInvalidPlaylist
	}

	p := &Playlist{}
	var (
		pendingDuration      float64
		pendingDiscontinuity bool
		pendingBandwidth     int64
		expectVariant        bool
		seq                  int64
		seqSet               bool
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			p.Master = true
			expectVariant = true
			pendingBandwidth = attrInt(line[len("#EXT-X-STREAM-INF:"):], "BANDWIDTH")
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			v, err := strconv.ParseFloat(line[len("#EXT-X-TARGETDURATION:"):], 64)
			if err != nil {
				return nil, ErrInvalidPlaylist
			}
			p.TargetDuration = v
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			v, err := strconv.ParseInt(line[len("#EXT-X-MEDIA-SEQUENCE:"):], 10, 64)
			if err != nil {
				return nil, ErrInvalidPlaylist
			}
			p.MediaSequence = v
			if !seqSet {
				seq = v
			}
		case strings.HasPrefix(line, "#EXTINF:"):
			v := line[len("#EXTINF:"):]
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, ErrInvalidPlaylist
			}
			pendingDuration = d
		case line == "#EXT-X-DISCONTINUITY":
			pendingDiscontinuity = true
		case line == "#EXT-X-ENDLIST":
			p.Ended = true
		case strings.HasPrefix(line, "#"):
		default:
			if expectVariant {
				p.Variants = append(p.Variants, Variant{Bandwidth: pendingBandwidth, URI: line})
				expectVariant = false
				continue
			}
			seqSet = true
			p.Segments = append(p.Segments, Segment{
				Sequence:      seq,
				Duration:      pendingDuration,
				URI:           line,
				Discontinuity: pendingDiscontinuity,
			})
			seq++
			pendingDuration = 0
			pendingDiscontinuity = false
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if p.Master && len(p.Variants) == 0 {
		return nil, ErrInvalidPlaylist
	}
	return p, nil
}

// BestVariant 选择码率最高的子流
func (p *Playlist) BestVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	best := p.Variants[0]
	for _, v := range p.Variants[1:] {
		if v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best, true
}

func attrInt(attrs, key string) int64 {
	for _, kv := range splitAttrs(attrs) {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), key) {
			n, _ := strconv.ParseInt(strings.Trim(v, `"`), 10, 64)
			return n
		}
	}
	return 0
}

// splitAttrs 按逗号切分属性列表，忽略引号内的逗号
func splitAttrs(s string) []string {
	var (
		out     []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func resolve(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(u), nil
}
