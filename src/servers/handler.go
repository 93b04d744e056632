package servers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/consts"
	"github.com/bililive-go/shadowreplay/src/database"
	"github.com/bililive-go/shadowreplay/src/instance"
	"github.com/bililive-go/shadowreplay/src/live"
	applog "github.com/bililive-go/shadowreplay/src/log"
	"github.com/bililive-go/shadowreplay/src/pkg/sysstats"
	"github.com/bililive-go/shadowreplay/src/recorders"
)

const totalLengthCacheKey = "stats:total_length"

var errBadRequest = errors.New("bad request")

func getManager(r *http.Request) recorders.Manager {
	return instance.GetInstance(r.Context()).RecorderManager.(recorders.Manager)
}

func getDB(r *http.Request) database.Store {
	return instance.GetInstance(r.Context()).Database
}

func readBody(r *http.Request) (gjson.Result, error) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(b) > 0 && !gjson.ValidBytes(b) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json body", errBadRequest)
	}
	return gjson.ParseBytes(b), nil
}

func roomVars(r *http.Request) (live.Platform, string, error) {
	vars := mux.Vars(r)
	p, err := live.ParsePlatform(vars["platform"])
	return p, vars["room"], err
}

// postMessage 写入站内消息并推送给前端，失败只记录日志
func postMessage(ctx context.Context, db database.Store, title, content string) {
	m, err := db.NewMessage(ctx, title, content)
	if err != nil {
		applog.GetLogger().WithError(err).Warn("保存消息失败")
		return
	}
	GetSSEHub().BroadcastMessage(m)
}

func getRecorders(writer http.ResponseWriter, r *http.Request) {
	writeJSON(writer, commonResp{Data: getManager(r).GetRecorderList()})
}

/*
	Post data example

	{
		"platform": "bilibili",
		"room_id": "1030"
	}
*/
func addRecorder(writer http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeMsg(writer, http.StatusBadRequest, err.Error())
		return
	}
	platform, err := live.ParsePlatform(body.Get("platform").String())
	if err != nil {
		writeError(writer, err)
		return
	}
	roomID := strings.TrimSpace(body.Get("room_id").String())
	if roomID == "" {
		writeMsg(writer, http.StatusBadRequest, "room_id is required")
		return
	}

	ctx := r.Context()
	db := getDB(r)
	var preferred string
	if cfg := configs.GetCurrentConfig(); cfg != nil {
		preferred = cfg.PrimaryAccounts[platform.String()]
	}
	account, err := database.PrimaryAccount(ctx, db, platform.String(), preferred)
	if err != nil {
		writeError(writer, err)
		return
	}

	m := getManager(r)
	rec, err := m.AddRecorder(ctx, platform, account, roomID)
	if err != nil {
		writeError(writer, err)
		return
	}
	if _, err := db.AddRecorder(ctx, platform.String(), roomID); err != nil && !errors.Is(err, database.ErrAlreadyExists) {
		if rmErr := m.RemoveRecorder(ctx, platform, roomID); rmErr != nil {
			applog.GetLogger().WithError(rmErr).Warn("回滚直播间失败")
		}
		writeError(writer, err)
		return
	}
	postMessage(ctx, db, "添加直播间", fmt.Sprintf("添加了新直播间 %s", roomID))
	info := rec.Info()
	GetSSEHub().BroadcastListChange(platform.String(), roomID, "added", info)
	writeJSON(writer, commonResp{Data: info})
}

func removeRecorder(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	ctx := r.Context()
	if err := getManager(r).RemoveRecorder(ctx, platform, roomID); err != nil {
		writeError(writer, err)
		return
	}
	db := getDB(r)
	if err := db.RemoveRecorder(ctx, platform.String(), roomID); err != nil && !errors.Is(err, database.ErrNotFound) {
		writeError(writer, err)
		return
	}
	postMessage(ctx, db, "移除直播间", fmt.Sprintf("移除了直播间 %s", roomID))
	GetSSEHub().BroadcastListChange(platform.String(), roomID, "removed", nil)
	writeJSON(writer, commonResp{Data: "OK"})
}

func getRecorder(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	info, ok := getManager(r).GetRecorderInfo(platform, roomID)
	if !ok {
		writeMsg(writer, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(writer, commonResp{Data: info})
}

func getArchives(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	list, err := getManager(r).GetArchives(platform, roomID)
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: list})
}

func getArchive(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	info, err := getManager(r).GetArchive(platform, roomID, mux.Vars(r)["live_id"])
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: info})
}

func deleteArchive(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	liveID := mux.Vars(r)["live_id"]
	if err := getManager(r).DeleteArchive(platform, roomID, liveID); err != nil {
		writeError(writer, err)
		return
	}
	postMessage(r.Context(), getDB(r), "删除历史缓存", fmt.Sprintf("删除了房间 %s 的历史缓存 %s", roomID, liveID))
	writeJSON(writer, commonResp{Data: "OK"})
}

func getDanmu(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	entries, err := getManager(r).GetDanmu(platform, roomID, mux.Vars(r)["live_id"])
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: entries})
}

func getLogs(writer http.ResponseWriter, r *http.Request) {
	platform, roomID, err := roomVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	logs, err := getManager(r).Logs(platform, roomID)
	if err != nil {
		writeError(writer, err)
		return
	}
	writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(writer, logs)
}

/*
	Post data example

	{
		"platform": "bilibili",
		"uid": 42,
		"room_id": "1030",
		"message": "hello"
	}
*/
func sendDanmaku(writer http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeMsg(writer, http.StatusBadRequest, err.Error())
		return
	}
	platform, err := live.ParsePlatform(body.Get("platform").String())
	if err != nil {
		writeError(writer, err)
		return
	}
	text := body.Get("message").String()
	if text == "" {
		writeMsg(writer, http.StatusBadRequest, "message is required")
		return
	}
	ctx := r.Context()
	account, err := getDB(r).GetAccount(ctx, platform.String(), body.Get("uid").Int())
	if err != nil {
		writeError(writer, err)
		return
	}
	if err := getManager(r).SendMessage(ctx, platform, account, body.Get("room_id").String(), text); err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: "OK"})
}

func getTotalLength(writer http.ResponseWriter, r *http.Request) {
	inst := instance.GetInstance(r.Context())
	if v, err := inst.Cache.Get(totalLengthCacheKey); err == nil {
		writeJSON(writer, commonResp{Data: v})
		return
	}
	total, err := inst.Database.GetTotalLength(r.Context())
	if err != nil {
		writeError(writer, err)
		return
	}
	_ = inst.Cache.SetWithExpire(totalLengthCacheKey, total, 5*time.Second)
	writeJSON(writer, commonResp{Data: total})
}

func getTodayCount(writer http.ResponseWriter, r *http.Request) {
	n, err := getDB(r).GetTodayRecordCount(r.Context())
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: n})
}

func getRecentRecords(writer http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	records, err := getDB(r).GetRecentRecords(r.Context(), offset, limit)
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: records})
}

func getSystemStats(writer http.ResponseWriter, r *http.Request) {
	path := configs.NewConfig().OutPutPath
	if cfg := configs.GetCurrentConfig(); cfg != nil {
		path = cfg.OutPutPath
	}
	stats, err := sysstats.Collect(r.Context(), path)
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: stats})
}

func getAccounts(writer http.ResponseWriter, r *http.Request) {
	accounts, err := getDB(r).GetAccounts(r.Context())
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: accounts})
}

func addAccount(writer http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeMsg(writer, http.StatusBadRequest, err.Error())
		return
	}
	platform, err := live.ParsePlatform(body.Get("platform").String())
	if err != nil {
		writeError(writer, err)
		return
	}
	account, err := getDB(r).AddAccount(r.Context(), platform.String(), strings.TrimSpace(body.Get("cookies").String()))
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: account})
}

func accountVars(r *http.Request) (string, int64, error) {
	vars := mux.Vars(r)
	p, err := live.ParsePlatform(vars["platform"])
	if err != nil {
		return "", 0, err
	}
	uid, err := strconv.ParseInt(vars["uid"], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: uid %s", database.ErrNotFound, vars["uid"])
	}
	return p.String(), uid, nil
}

func updateAccount(writer http.ResponseWriter, r *http.Request) {
	platform, uid, err := accountVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeMsg(writer, http.StatusBadRequest, err.Error())
		return
	}
	if err := getDB(r).UpdateAccount(r.Context(), platform, uid, body.Get("name").String(), body.Get("avatar").String()); err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: "OK"})
}

func removeAccount(writer http.ResponseWriter, r *http.Request) {
	platform, uid, err := accountVars(r)
	if err != nil {
		writeError(writer, err)
		return
	}
	if err := getDB(r).RemoveAccount(r.Context(), platform, uid); err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: "OK"})
}

func getMessages(writer http.ResponseWriter, r *http.Request) {
	messages, err := getDB(r).GetMessages(r.Context())
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: messages})
}

func messageID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: message %s", database.ErrNotFound, mux.Vars(r)["id"])
	}
	return id, nil
}

func readMessage(writer http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err == nil {
		err = getDB(r).ReadMessage(r.Context(), id)
	}
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: "OK"})
}

func deleteMessage(writer http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err == nil {
		err = getDB(r).DeleteMessage(r.Context(), id)
	}
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, commonResp{Data: "OK"})
}

func getInfo(writer http.ResponseWriter, r *http.Request) {
	writeJSON(writer, commonResp{Data: consts.GetAppInfo()})
}

func getConfig(writer http.ResponseWriter, r *http.Request) {
	writeJSON(writer, commonResp{Data: configs.GetCurrentConfig()})
}
