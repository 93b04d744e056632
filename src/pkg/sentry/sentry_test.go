package sentry

import (
	"context"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	in := "request failed: cookie SESSDATA=abc123; bili_jct=deadbeef; DedeUserID=42"
	out := sanitizeString(in)
	assert.NotContains(t, out, "abc123")
	assert.NotContains(t, out, "deadbeef")
	assert.Contains(t, out, "SESSDATA=[REDACTED]")
	assert.Contains(t, out, "DedeUserID=42")
	assert.Equal(t, "", sanitizeString(""))
}

func TestBeforeSendHook(t *testing.T) {
	event := &sentry.Event{
		Message: "https://api.example.com/?key=secret",
		Request: &sentry.Request{
			Cookies: "SESSDATA=1",
			Headers: map[string]string{"Cookie": "SESSDATA=1", "Accept": "*/*"},
		},
	}
	out := beforeSendHook(event, nil)
	assert.Equal(t, "https://api.example.com/?key=[REDACTED]", out.Message)
	assert.Empty(t, out.Request.Cookies)
	assert.NotContains(t, out.Request.Headers, "Cookie")
	assert.Contains(t, out.Request.Headers, "Accept")
}

func TestGoRecoversPanic(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	Go(func() {
		defer wg.Done()
		panic("boom")
	})
	GoWithContext(context.Background(), func(ctx context.Context) {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()
}

type memStore struct {
	mu sync.Mutex
	kv map[string]string
}

func (m *memStore) GetMeta(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kv[key], nil
}

func (m *memStore) SetMeta(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func TestLoadOrCreateDeviceID(t *testing.T) {
	store := &memStore{kv: map[string]string{}}
	SetDeviceIDStore(store)
	defer SetDeviceIDStore(nil)

	id := loadOrCreateDeviceID()
	assert.Len(t, id, 32)
	assert.Equal(t, id, store.kv[deviceIDKey])
	assert.Equal(t, id, loadOrCreateDeviceID())
}
