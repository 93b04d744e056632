package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bililive-go/shadowreplay/src/live/credential"
)

const accountColumns = "platform, uid, name, avatar, csrf, cookies, created_at"

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var (
		a       Account
		created int64
	)
	if err := row.Scan(&a.Platform, &a.UID, &a.Name, &a.Avatar, &a.CSRF, &a.Cookies, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = time.UnixMilli(created)
	return &a, nil
}

// AddAccount 解析 cookie 得到 uid 与 csrf 后保存
func (s *SQLiteStore) AddAccount(ctx context.Context, platform, cookies string) (*Account, error) {
	cred, err := credential.Parse(platform, cookies)
	if err != nil {
		return nil, err
	}
	uid, err := strconv.ParseInt(cred.UID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: uid %q", credential.ErrInvalidCookies, cred.UID)
	}
	a := &Account{
		Platform:  platform,
		UID:       uid,
		CSRF:      cred.CSRF,
		Cookies:   cookies,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = existsIfNone(s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform, uid) DO NOTHING
	`, a.Platform, a.UID, a.Name, a.Avatar, a.CSRF, a.Cookies, a.CreatedAt.UnixMilli()))
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLiteStore) RemoveAccount(ctx context.Context, platform string, uid int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notFoundIfNone(s.db.ExecContext(ctx,
		"DELETE FROM accounts WHERE platform = ? AND uid = ?", platform, uid))
}

func (s *SQLiteStore) UpdateAccount(ctx context.Context, platform string, uid int64, name, avatar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notFoundIfNone(s.db.ExecContext(ctx,
		"UPDATE accounts SET name = ?, avatar = ? WHERE platform = ? AND uid = ?", name, avatar, platform, uid))
}

func (s *SQLiteStore) GetAccounts(ctx context.Context) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := make([]*Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) GetAccount(ctx context.Context, platform string, uid int64) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := scanAccount(s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE platform = ? AND uid = ?", platform, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// GetAccountByPlatform 返回该平台最早添加的账号
func (s *SQLiteStore) GetAccountByPlatform(ctx context.Context, platform string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := scanAccount(s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE platform = ? ORDER BY created_at LIMIT 1", platform))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// PrimaryAccount 优先返回 preferredUID 对应的账号，否则返回该平台最早添加的账号，都没有时返回 nil
func PrimaryAccount(ctx context.Context, s Store, platform, preferredUID string) (*Account, error) {
	if preferredUID != "" {
		if uid, err := strconv.ParseInt(preferredUID, 10, 64); err == nil {
			a, err := s.GetAccount(ctx, platform, uid)
			if err == nil {
				return a, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
	}
	a, err := s.GetAccountByPlatform(ctx, platform)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}
