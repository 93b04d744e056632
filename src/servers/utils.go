package servers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bililive-go/shadowreplay/src/archive"
	"github.com/bililive-go/shadowreplay/src/clip"
	"github.com/bililive-go/shadowreplay/src/database"
	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/live/credential"
	applog "github.com/bililive-go/shadowreplay/src/log"
	"github.com/bililive-go/shadowreplay/src/recorders"
	"github.com/bililive-go/shadowreplay/src/pkg/transcoder"
)

type commonResp struct {
	ErrNo  int    `json:"err_no"`
	ErrMsg string `json:"err_msg"`
	Data   any    `json:"data"`
}

func writeJSON(writer http.ResponseWriter, obj any) {
	writeJsonWithStatusCode(writer, http.StatusOK, obj)
}

func writeJsonWithStatusCode(writer http.ResponseWriter, statusCode int, obj any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	if err := json.NewEncoder(writer).Encode(obj); err != nil {
		applog.GetLogger().WithError(err).Debug("写入响应失败")
	}
}

func writeMsg(writer http.ResponseWriter, statusCode int, msg string) {
	writeJsonWithStatusCode(writer, statusCode, commonResp{
		ErrNo:  statusCode,
		ErrMsg: msg,
	})
}

// statusCode 错误类型到 HTTP 状态码的映射
func statusCode(err error) int {
	switch {
	case errors.Is(err, recorders.ErrNotFound),
		errors.Is(err, archive.ErrSessionNotFound),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, recorders.ErrAlreadyExists),
		errors.Is(err, database.ErrAlreadyExists),
		errors.Is(err, clip.ErrOutputExists),
		errors.Is(err, recorders.ErrArchiveActive):
		return http.StatusConflict
	case errors.Is(err, clip.ErrInvalidRange),
		errors.Is(err, clip.ErrDiscontinuousRange),
		errors.Is(err, errInvalidPath),
		errors.Is(err, errBadRequest),
		errors.Is(err, live.ErrUnknownPlatform),
		errors.Is(err, live.ErrCredentialsRequired),
		errors.Is(err, credential.ErrInvalidCookies):
		return http.StatusBadRequest
	case errors.Is(err, recorders.ErrPlatformRejected),
		errors.Is(err, transcoder.ErrTranscodeFailure):
		return http.StatusBadGateway
	case errors.Is(err, live.ErrNotSupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeError(writer http.ResponseWriter, err error) {
	writeMsg(writer, statusCode(err), err.Error())
}
