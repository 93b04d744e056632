package servers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bililive-go/shadowreplay/src/clip"
	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/instance"
	"github.com/bililive-go/shadowreplay/src/pkg/transcoder"
)

var (
	errNoTranscoder = errors.New("transcoder not configured")
	errInvalidPath  = errors.New("invalid path")
)

func getPlaylist(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	content, err := getManager(r).M3U8Content(platform, roomID, mux.Vars(r)["live_id"])
	if err != nil {
		writeError(writer, err)
		return
	}
	writer.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	writer.Header().Set("Cache-Control", "no-cache")
	io.WriteString(writer, content)
}

func getSegment(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	vars := mux.Vars(r)
	path, err := getManager(r).SegmentPath(platform, roomID, vars["live_id"], vars["file"])
	if err != nil {
		writeError(writer, err)
		return
	}
	writer.Header().Set("Content-Type", "video/mp2t")
	http.ServeFile(writer, r, path)
}

/*
	Post data example

	{
		"start": 10,
		"end": 40,
		"output": "highlight.mp4"
	}
*/
func clipArchive(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeMsg(writer, http.StatusBadRequest, err.Error())
		return
	}
	liveID := mux.Vars(r)["live_id"]
	start, end := body.Get("start").Float(), body.Get("end").Float()
	hub := GetSSEHub()
	progress := func(text string) {
		hub.BroadcastClipProgress(platform.String(), roomID, liveID, text)
	}
	path, err := getManager(r).ClipRange(r.Context(), platform, roomID, liveID, start, end, body.Get("output").String(), progress)
	if err != nil {
		writeError(writer, err)
		return
	}
	postMessage(r.Context(), getDB(r), "生成切片", fmt.Sprintf("生成了房间 %s 的切片 %s", roomID, filepath.Base(path)))
	writeJSON(writer, commonResp{Data: map[string]string{"path": path}})
}

// resolveClipPath 把相对路径解析到切片目录下，不允许越出该目录
func resolveClipPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty", errInvalidPath)
	}
	cfg := configs.GetCurrentConfig()
	if cfg == nil {
		cfg = configs.NewConfig()
	}
	base, err := filepath.Abs(cfg.Clip.OutPutPath)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Join(base, p))
	if err != nil {
		return "", err
	}
	if abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return abs, nil
}

func getTranscoder(r *http.Request) (transcoder.Transcoder, error) {
	tc := instance.GetInstance(r.Context()).Transcoder
	if tc == nil {
		return nil, errNoTranscoder
	}
	return tc, nil
}

// mediaPaths 从请求体中读取并解析路径字段
func mediaPaths(r *http.Request, keys ...string) (map[string]string, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(keys))
	for _, k := range keys {
		p, err := resolveClipPath(body.Get(k).String())
		if err != nil {
			return nil, err
		}
		paths[k] = p
	}
	paths["format"] = body.Get("format").String()
	paths["style"] = body.Get("style").String()
	return paths, nil
}

func checkOutput(path string) error {
	if _, err := os.Stat(path); err == nil {
		return clip.ErrOutputExists
	}
	return nil
}

/*
	Post data example

	{
		"input": "clip.ts",
		"format": "mp4",
		"output": "clip.mp4"
	}
*/
func remuxMedia(writer http.ResponseWriter, r *http.Request) {
	tc, err := getTranscoder(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	paths, err := mediaPaths(r, "input", "output")
	if err == nil {
		err = checkOutput(paths["output"])
	}
	if err == nil {
		err = tc.Remux(r.Context(), paths["input"], paths["format"], paths["output"], nil)
	}
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: map[string]string{"path": paths["output"]}})
}

func extractAudio(writer http.ResponseWriter, r *http.Request) {
	tc, err := getTranscoder(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	paths, err := mediaPaths(r, "input", "output")
	if err == nil {
		err = checkOutput(paths["output"])
	}
	if err == nil {
		err = tc.ExtractAudio(r.Context(), paths["input"], paths["output"])
	}
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: map[string]string{"path": paths["output"]}})
}

func encodeSubtitle(writer http.ResponseWriter, r *http.Request) {
	tc, err := getTranscoder(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	paths, err := mediaPaths(r, "video", "subtitle")
	if err != nil {
		writeError(writer, err)
		return
	}
	out, err := tc.EncodeSubtitle(r.Context(), paths["video"], paths["subtitle"], paths["style"], nil)
	if err != nil {
		writeError(writer, err)
		return
	}
	postMessage(r.Context(), getDB(r), "压制字幕", fmt.Sprintf("生成了 %s", filepath.Base(out)))
	writeJSON(writer, commonResp{Data: map[string]string{"path": out}})
}
