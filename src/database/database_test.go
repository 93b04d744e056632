package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bililive-go/shadowreplay/src/live/credential"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddAccount(ctx, "bilibili", "SESSDATA=x; bili_jct=token; DedeUserID=42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), a.UID)
	assert.Equal(t, "token", a.CSRF)

	_, err = s.AddAccount(ctx, "bilibili", "SESSDATA=y; bili_jct=other; DedeUserID=42")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.AddAccount(ctx, "bilibili", "SESSDATA=y")
	assert.ErrorIs(t, err, credential.ErrInvalidCookies)

	require.NoError(t, s.UpdateAccount(ctx, "bilibili", 42, "name", "avatar"))
	got, err := s.GetAccount(ctx, "bilibili", 42)
	require.NoError(t, err)
	assert.Equal(t, "name", got.Name)
	assert.Equal(t, "avatar", got.Avatar)
	assert.Equal(t, "42", got.Credential().UID)
	assert.Equal(t, "token", got.Credential().CSRF)

	byPlatform, err := s.GetAccountByPlatform(ctx, "bilibili")
	require.NoError(t, err)
	assert.Equal(t, int64(42), byPlatform.UID)

	_, err = s.GetAccount(ctx, "bilibili", 7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetAccountByPlatform(ctx, "huya")
	assert.ErrorIs(t, err, ErrNotFound)

	primary, err := PrimaryAccount(ctx, s, "bilibili", "7")
	require.NoError(t, err)
	assert.Equal(t, int64(42), primary.UID)
	primary, err = PrimaryAccount(ctx, s, "huya", "")
	require.NoError(t, err)
	assert.Nil(t, primary)

	douyin, err := s.AddAccount(ctx, "douyin", "ttwid=1")
	require.NoError(t, err)
	assert.Empty(t, douyin.CSRF)

	accounts, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	require.NoError(t, s.RemoveAccount(ctx, "bilibili", 42))
	assert.ErrorIs(t, s.RemoveAccount(ctx, "bilibili", 42), ErrNotFound)
	assert.ErrorIs(t, s.UpdateAccount(ctx, "bilibili", 42, "", ""), ErrNotFound)
}

func TestRecorders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddRecorder(ctx, "bilibili", "1")
	require.NoError(t, err)
	_, err = s.AddRecorder(ctx, "huya", "2")
	require.NoError(t, err)
	_, err = s.AddRecorder(ctx, "bilibili", "1")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	rows, err := s.GetRecorders(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, s.RemoveRecorder(ctx, "bilibili", "1"))
	assert.ErrorIs(t, s.RemoveRecorder(ctx, "bilibili", "1"), ErrNotFound)
}

func TestRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	_, err := s.AddRecord(ctx, "bilibili", "1", "100", "old", now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = s.AddRecord(ctx, "bilibili", "1", "200", "today", now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.AddRecord(ctx, "huya", "2", "300", "other", now)
	require.NoError(t, err)
	_, err = s.AddRecord(ctx, "huya", "2", "300", "dup", now)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, s.UpdateRecord(ctx, "100", 60, 1000))
	require.NoError(t, s.UpdateRecord(ctx, "200", 30.5, 500))
	assert.ErrorIs(t, s.UpdateRecord(ctx, "999", 1, 1), ErrNotFound)

	total, err := s.GetTotalLength(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 90.5, total, 1e-9)

	today, err := s.GetTodayRecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), today)

	records, err := s.GetRecords(ctx, "bilibili", "1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "200", records[0].LiveID)

	recent, err := s.GetRecentRecords(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "200", recent[0].LiveID)

	r, err := s.GetRecord(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), r.Size)

	require.NoError(t, s.RemoveRecord(ctx, "100"))
	_, err = s.GetRecord(ctx, "100")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m1, err := s.NewMessage(ctx, "添加直播间", "添加了新直播间 1")
	require.NoError(t, err)
	m2, err := s.NewMessage(ctx, "移除直播间", "移除了直播间 1")
	require.NoError(t, err)
	assert.Greater(t, m2.ID, m1.ID)

	require.NoError(t, s.ReadMessage(ctx, m1.ID))
	msgs, err := s.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m2.ID, msgs[0].ID)
	assert.False(t, msgs[0].Read)
	assert.True(t, msgs[1].Read)

	require.NoError(t, s.DeleteMessage(ctx, m1.ID))
	assert.ErrorIs(t, s.DeleteMessage(ctx, m1.ID), ErrNotFound)
	assert.ErrorIs(t, s.ReadMessage(ctx, 999), ErrNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.AddRecorder(context.Background(), "bilibili", "1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.GetRecorders(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	v, err := s.GetMeta(context.Background(), "app_version")
	require.NoError(t, err)
	assert.NotEmpty(t, v)
}
