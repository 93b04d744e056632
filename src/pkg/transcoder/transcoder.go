//go:generate go run go.uber.org/mock/mockgen -package mock -destination mock/mock.go github.com/bililive-go/shadowreplay/src/pkg/transcoder Transcoder
package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrTranscodeFailure = errors.New("transcode failed")
	ErrOutputExists     = errors.New("Output path already exists")
)

// TranscodeError 原样携带 ffmpeg 的错误信息
type TranscodeError struct {
	Message string
}

func (e *TranscodeError) Error() string {
	return e.Message
}

func (e *TranscodeError) Is(target error) bool {
	return target == ErrTranscodeFailure
}

// ProgressFunc 接收可直接展示的进度文本
type ProgressFunc func(text string)

type TrimRequest struct {
	Input string
	// Format 输入格式，为空时由 ffmpeg 探测
	Format string
	// Start End 相对输入文件开头的秒数
	Start  float64
	End    float64
	Output string
}

type Transcoder interface {
	Trim(ctx context.Context, req TrimRequest, progress ProgressFunc) error
	Remux(ctx context.Context, input, format, output string, progress ProgressFunc) error
	ExtractAudio(ctx context.Context, input, output string) error
	EncodeSubtitle(ctx context.Context, video, subtitle, style string, progress ProgressFunc) (string, error)
}

// FFmpeg 调用外部 ffmpeg 进程
type FFmpeg struct {
	Path   string
	Logger *logrus.Entry
}

func New(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{
		Path:   path,
		Logger: logrus.WithField("module", "transcoder"),
	}
}

var commonArgs = []string{"-hide_banner", "-nostats", "-loglevel", "level+warning", "-progress", "pipe:2"}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func (f *FFmpeg) Trim(ctx context.Context, req TrimRequest, progress ProgressFunc) error {
	args := append([]string{}, commonArgs...)
	if req.Format != "" {
		args = append(args, "-f", req.Format)
	}
	args = append(args,
		"-i", req.Input,
		"-ss", formatSeconds(req.Start),
		"-to", formatSeconds(req.End),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"-y", req.Output,
	)
	return f.run(ctx, args, "编码中：", progress)
}

func (f *FFmpeg) Remux(ctx context.Context, input, format, output string, progress ProgressFunc) error {
	args := append([]string{}, commonArgs...)
	if format != "" {
		args = append(args, "-f", format)
	}
	args = append(args, "-i", input, "-c", "copy", "-y", output)
	return f.run(ctx, args, "编码中：", progress)
}

// ExtractAudio 输出 16kHz 的 wav，供语音识别使用
func (f *FFmpeg) ExtractAudio(ctx context.Context, input, output string) error {
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".wav"
	}
	args := append([]string{}, commonArgs...)
	args = append(args, "-i", input, "-ar", "16000", "-y", output)
	return f.run(ctx, args, "", nil)
}

// EncodeSubtitle 把字幕压制进视频，输出为同目录下的 [subtitle]<原文件名>
func (f *FFmpeg) EncodeSubtitle(ctx context.Context, video, subtitle, style string, progress ProgressFunc) (string, error) {
	name := "[subtitle]" + filepath.Base(video)
	output := filepath.Join(filepath.Dir(video), name)
	if _, err := os.Stat(output); err == nil {
		f.Logger.Infof("Output path already exists: %s", output)
		return "", ErrOutputExists
	}
	vf := fmt.Sprintf("subtitles=%s", quoteFilterPath(subtitle))
	if style != "" {
		vf += fmt.Sprintf(":force_style='%s'", style)
	}
	args := append([]string{}, commonArgs...)
	args = append(args,
		"-i", video,
		"-vf", vf,
		"-c:v", "libx264",
		"-c:a", "copy",
		"-y", output,
	)
	if err := f.run(ctx, args, "压制中：", progress); err != nil {
		return "", err
	}
	return name, nil
}

func quoteFilterPath(p string) string {
	if runtime.GOOS == "windows" {
		p = strings.NewReplacer(`\`, `\\`, ":", `\:`).Replace(p)
	}
	return "'" + p + "'"
}

func (f *FFmpeg) run(ctx context.Context, args []string, prefix string, progress ProgressFunc) error {
	logger := f.Logger.WithField("args", strings.Join(args, " "))
	logger.Debug("ffmpeg start")

	cmd := exec.CommandContext(ctx, f.Path, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &TranscodeError{Message: err.Error()}
	}

	var lastErr string
	for ev := range Events(stderr) {
		switch ev.Kind {
		case EventProgress:
			if progress != nil && prefix != "" {
				progress(prefix + ev.Time)
			}
		case EventError:
			logger.Error(ev.Message)
			lastErr = ev.Message
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if lastErr != "" {
		return &TranscodeError{Message: lastErr}
	}
	if waitErr != nil {
		return &TranscodeError{Message: waitErr.Error()}
	}
	logger.Debug("ffmpeg done")
	return nil
}
