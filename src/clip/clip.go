package clip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/shadowreplay/src/archive"
	"github.com/bililive-go/shadowreplay/src/pkg/transcoder"
)

var (
	ErrInvalidRange       = errors.New("invalid clip range")
	ErrDiscontinuousRange = errors.New("clip range crosses a discontinuity")
	ErrOutputExists       = transcoder.ErrOutputExists
	ErrTranscodeFailure   = transcoder.ErrTranscodeFailure
)

// Source 切片所需的会话分片列表
type Source interface {
	Segments() ([]*archive.Segment, error)
}

type Request struct {
	// Start End 相对会话开头的秒数，区间为 [Start, End)
	Start  float64
	End    float64
	Output string
}

type Pipeline struct {
	tc     transcoder.Transcoder
	tmpDir string
	logger *logrus.Entry
}

func NewPipeline(tc transcoder.Transcoder, tmpDir string) *Pipeline {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Pipeline{
		tc:     tc,
		tmpDir: tmpDir,
		logger: logrus.WithField("module", "clip"),
	}
}

// Covering 返回与 [start, end) 相交的分片，按序号排列
func Covering(segments []*archive.Segment, start, end float64) []*archive.Segment {
	var out []*archive.Segment
	for _, seg := range segments {
		if seg.Offset < end && seg.Offset+seg.Duration > start {
			out = append(out, seg)
		}
	}
	return out
}

// Extract 从会话中截取 [Start, End) 输出到 req.Output，返回输出路径
func (p *Pipeline) Extract(ctx context.Context, src Source, req Request, progress transcoder.ProgressFunc) (string, error) {
	if req.Start < 0 || req.Start >= req.End {
		return "", fmt.Errorf("%w: start %.3f, end %.3f", ErrInvalidRange, req.Start, req.End)
	}
	segments, err := src.Segments()
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: session has no segments", ErrInvalidRange)
	}
	last := segments[len(segments)-1]
	length := last.Offset + last.Duration
	if req.End > length {
		return "", fmt.Errorf("%w: end %.3f exceeds recorded length %.3f", ErrInvalidRange, req.End, length)
	}
	if _, err := os.Stat(req.Output); err == nil {
		return "", fmt.Errorf("%w: %s", ErrOutputExists, req.Output)
	}

	covering := Covering(segments, req.Start, req.End)
	if len(covering) == 0 {
		return "", fmt.Errorf("%w: no segment covers the range", ErrInvalidRange)
	}
	for _, seg := range covering[1:] {
		if seg.Discontinuity {
			return "", fmt.Errorf("%w: at segment %d (%.3fs)", ErrDiscontinuousRange, seg.Sequence, seg.Offset)
		}
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), os.ModePerm); err != nil {
		return "", err
	}

	base := covering[0].Offset
	input := covering[0].Path
	if len(covering) > 1 {
		input, err = p.concat(covering)
		if err != nil {
			return "", err
		}
		defer os.Remove(input)
	}

	p.logger.WithFields(logrus.Fields{
		"segments": len(covering),
		"start":    req.Start,
		"end":      req.End,
		"output":   req.Output,
	}).Info("开始切片")
	err = p.tc.Trim(ctx, transcoder.TrimRequest{
		Input:  input,
		Format: "mpegts",
		Start:  req.Start - base,
		End:    req.End - base,
		Output: req.Output,
	}, progress)
	if err != nil {
		return "", err
	}
	return req.Output, nil
}

// concat 按顺序拼接分片到临时 ts 文件
func (p *Pipeline) concat(segments []*archive.Segment) (string, error) {
	if err := os.MkdirAll(p.tmpDir, os.ModePerm); err != nil {
		return "", err
	}
	name := filepath.Join(p.tmpDir, uuid.Must(uuid.NewV4()).String()+".ts")
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	for _, seg := range segments {
		if err = appendFile(f, seg.Path); err != nil {
			break
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(name)
		return "", fmt.Errorf("concat segments: %w", err)
	}
	return name, nil
}

func appendFile(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}

// NameData 切片文件名模板可用的字段
type NameData struct {
	Platform string
	RoomID   string
	LiveID   string
	Title    string
	Start    float64
	End      float64
	Now      time.Time
}

var invalidNameChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	"\n", " ", "\r", " ",
)

// Name 用模板生成切片文件名，模板中可使用 sprig 函数
func Name(tmpl string, data NameData) (string, error) {
	t, err := template.New("clip").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", err
	}
	buf := new(bytes.Buffer)
	if err := t.Execute(buf, data); err != nil {
		return "", err
	}
	name := strings.TrimSpace(invalidNameChars.Replace(buf.String()))
	if name == "" {
		return "", errors.New("clip name template produced an empty name")
	}
	return name, nil
}
