package transcoder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	ev, ok := ParseLine("out_time=00:00:05.120000")
	require.True(t, ok)
	assert.Equal(t, Event{Kind: EventProgress, Time: "00:00:05.120000"}, ev)

	ev, ok = ParseLine("[mpegts @ 0x5612] [error] Packet corrupt (stream = 0, dts = 1)")
	require.True(t, ok)
	assert.Equal(t, EventError, ev.Kind)
	assert.Equal(t, "Packet corrupt (stream = 0, dts = 1)", ev.Message)

	ev, ok = ParseLine("[fatal] in.ts: No such file or directory")
	require.True(t, ok)
	assert.Equal(t, "in.ts: No such file or directory", ev.Message)

	for _, line := range []string{"frame=100", "progress=continue", "[warning] slow", ""} {
		_, ok := ParseLine(line)
		assert.False(t, ok, line)
	}
}

func TestEventsEndsWithEOF(t *testing.T) {
	var kinds []EventKind
	for ev := range Events(strings.NewReader("bitrate=1\nout_time=00:00:01.000000\n[error] bad\n")) {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventProgress, EventError, EventEOF}, kinds)
}

// fakeFFmpeg 写一个记录参数并输出给定 stderr 的脚本
func fakeFFmpeg(t *testing.T, stderr string, exitCode int) (*FFmpeg, string) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script ffmpeg stub")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"printf '" + stderr + "' >&2\n" +
		"exit " + string(rune('0'+exitCode)) + "\n"
	path := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return New(path), argsFile
}

func TestTrimReportsProgress(t *testing.T) {
	f, argsFile := fakeFFmpeg(t, `out_time=00:00:01.000000\nprogress=continue\nout_time=00:00:02.000000\nprogress=end\n`, 0)
	var texts []string
	err := f.Trim(context.Background(), TrimRequest{Input: "in.ts", Format: "mpegts", Start: 1.5, End: 30, Output: "out.mp4"}, func(s string) {
		texts = append(texts, s)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"编码中：00:00:01.000000", "编码中：00:00:02.000000"}, texts)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-f mpegts -i in.ts -ss 1.500 -to 30.000 -c copy")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(args)), "-y out.mp4"))
}

func TestTrimForwardsToolMessage(t *testing.T) {
	f, _ := fakeFFmpeg(t, `[error] in.ts: Invalid data found when processing input\n`, 1)
	err := f.Trim(context.Background(), TrimRequest{Input: "in.ts", End: 1, Output: "o.mp4"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscodeFailure)
	assert.Equal(t, "in.ts: Invalid data found when processing input", err.Error())
}

func TestExitCodeWithoutMessage(t *testing.T) {
	f, _ := fakeFFmpeg(t, ``, 3)
	err := f.Remux(context.Background(), "a.ts", "", "b.mp4", nil)
	assert.ErrorIs(t, err, ErrTranscodeFailure)
}

func TestEncodeSubtitle(t *testing.T) {
	f, argsFile := fakeFFmpeg(t, `out_time=00:00:03.000000\n`, 0)
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")

	var texts []string
	name, err := f.EncodeSubtitle(context.Background(), video, filepath.Join(dir, "clip.srt"), "FontSize=24", func(s string) {
		texts = append(texts, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "[subtitle]clip.mp4", name)
	assert.Equal(t, []string{"压制中：00:00:03.000000"}, texts)
	args, _ := os.ReadFile(argsFile)
	assert.Contains(t, string(args), "force_style='FontSize=24'")

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	_, err = f.EncodeSubtitle(context.Background(), video, "x.srt", "", nil)
	assert.EqualError(t, err, "Output path already exists")
}

func TestExtractAudioDefaultOutput(t *testing.T) {
	f, argsFile := fakeFFmpeg(t, ``, 0)
	require.NoError(t, f.ExtractAudio(context.Background(), "/tmp/a.mp4", ""))
	args, _ := os.ReadFile(argsFile)
	assert.Contains(t, string(args), "-ar 16000 -y /tmp/a.wav")
}
