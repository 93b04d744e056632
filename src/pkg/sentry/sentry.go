// Package sentry 封装 Sentry 崩溃上报，并提供带 panic 恢复的 goroutine 启动函数
package sentry

import (
	"context"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

var initialized atomic.Bool

// 账号 cookie 与 csrf 不能出现在上报内容里
var sensitivePattern = regexp.MustCompile(`(?i)(SESSDATA|bili_jct|DedeUserID__ckMd5|sessionid|sessionid_ss|ttwid|csrf|csrf_token|api_key|key|token)=([^;&\s]*)`)

// Init 初始化 Sentry SDK，dsn 为空时不启用
func Init(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		BeforeSend:       beforeSendHook,
		SampleRate:       1.0,
	})
	if err != nil {
		return err
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: GetAnonymousDeviceID()})
	})
	initialized.Store(true)
	return nil
}

func IsInitialized() bool {
	return initialized.Load()
}

// Flush 在程序退出前发送队列中的事件
func Flush(timeout time.Duration) {
	if !IsInitialized() {
		return
	}
	sentry.Flush(timeout)
}

// RecoverWithContext 必须直接 defer 调用，否则 recover() 拿不到 panic
func RecoverWithContext(ctx context.Context) {
	err := recover()
	if err == nil {
		return
	}
	if !IsInitialized() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.RecoverWithContext(ctx, err)
}

// Recover 必须直接 defer 调用
func Recover() {
	err := recover()
	if err == nil {
		return
	}
	if IsInitialized() {
		sentry.CurrentHub().Recover(err)
	}
}

func CaptureException(err error) {
	if !IsInitialized() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureRoomException 上报与某个直播间相关的错误
func CaptureRoomException(err error, platform, roomID string) {
	if !IsInitialized() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("platform", platform)
		scope.SetTag("room_id", roomID)
		sentry.CaptureException(err)
	})
}

// Go 启动一个带 panic 恢复的 goroutine
func Go(f func()) {
	go func() {
		defer Recover()
		f()
	}()
}

// GoWithContext 启动一个带 panic 恢复的 goroutine，f 接收传入的 ctx
func GoWithContext(ctx context.Context, f func(context.Context)) {
	go func() {
		defer RecoverWithContext(ctx)
		f(ctx)
	}()
}

func beforeSendHook(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.Message = sanitizeString(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = sanitizeString(event.Exception[i].Value)
	}
	for i := range event.Breadcrumbs {
		event.Breadcrumbs[i].Message = sanitizeString(event.Breadcrumbs[i].Message)
	}
	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.QueryString = sanitizeString(event.Request.QueryString)
		delete(event.Request.Headers, "Cookie")
		delete(event.Request.Headers, "Authorization")
	}
	return event
}

func sanitizeString(s string) string {
	if s == "" {
		return s
	}
	return sensitivePattern.ReplaceAllString(s, "$1=[REDACTED]")
}
