// Package ratelimit 限制对各直播平台 API 的访问频率
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter 按平台维护最小访问间隔
type Limiter struct {
	mu       sync.RWMutex
	platform map[string]*slot
}

type slot struct {
	mu          sync.Mutex
	minInterval time.Duration
	next        time.Time
}

var global = New()

// Global 返回进程内共享的限制器
func Global() *Limiter {
	return global
}

func New() *Limiter {
	return &Limiter{platform: make(map[string]*slot)}
}

// SetInterval 设置平台的最小访问间隔，interval <= 0 时取消限制
func (l *Limiter) SetInterval(platform string, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if interval <= 0 {
		delete(l.platform, platform)
		return
	}
	if s, ok := l.platform[platform]; ok {
		s.mu.Lock()
		s.minInterval = interval
		s.mu.Unlock()
		return
	}
	l.platform[platform] = &slot{minInterval: interval}
}

// Interval 返回平台当前的最小访问间隔
func (l *Limiter) Interval(platform string) time.Duration {
	l.mu.RLock()
	s, ok := l.platform[platform]
	l.mu.RUnlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minInterval
}

// Wait 阻塞直到允许访问该平台。
// 调用方按到达顺序占用时间片，等待期间不持有锁。ctx 取消时返回 ctx.Err()
func (l *Limiter) Wait(ctx context.Context, platform string) error {
	l.mu.RLock()
	s, ok := l.platform[platform]
	l.mu.RUnlock()
	if !ok {
		return ctx.Err()
	}

	s.mu.Lock()
	now := time.Now()
	at := s.next
	if at.Before(now) {
		at = now
	}
	s.next = at.Add(s.minInterval)
	s.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
