package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *SQLiteStore) AddRecorder(ctx context.Context, platform, roomID string) (*RecorderRow, error) {
	r := &RecorderRow{Platform: platform, RoomID: roomID, CreatedAt: s.now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := existsIfNone(s.db.ExecContext(ctx, `
		INSERT INTO recorders (platform, room_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(platform, room_id) DO NOTHING
	`, platform, roomID, r.CreatedAt.UnixMilli()))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) RemoveRecorder(ctx context.Context, platform, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notFoundIfNone(s.db.ExecContext(ctx,
		"DELETE FROM recorders WHERE platform = ? AND room_id = ?", platform, roomID))
}

// GetRecorders 按添加顺序返回，启动时据此恢复录制
func (s *SQLiteStore) GetRecorders(ctx context.Context) ([]*RecorderRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT platform, room_id, created_at FROM recorders ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recorders := make([]*RecorderRow, 0)
	for rows.Next() {
		var (
			r       RecorderRow
			created int64
		)
		if err := rows.Scan(&r.Platform, &r.RoomID, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(created)
		recorders = append(recorders, &r)
	}
	return recorders, rows.Err()
}

const recordColumns = "live_id, platform, room_id, title, length, size, created_at"

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var (
		r       Record
		created int64
	)
	if err := row.Scan(&r.LiveID, &r.Platform, &r.RoomID, &r.Title, &r.Length, &r.Size, &created); err != nil {
		return nil, err
	}
	r.CreatedAt = time.UnixMilli(created)
	return &r, nil
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]*Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) AddRecord(ctx context.Context, platform, roomID, liveID, title string, start time.Time) (*Record, error) {
	r := &Record{
		LiveID:    liveID,
		Platform:  platform,
		RoomID:    roomID,
		Title:     title,
		CreatedAt: start,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := existsIfNone(s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`) VALUES (?, ?, ?, ?, 0, 0, ?)
		ON CONFLICT(live_id) DO NOTHING
	`, liveID, platform, roomID, title, start.UnixMilli()))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) UpdateRecord(ctx context.Context, liveID string, length float64, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notFoundIfNone(s.db.ExecContext(ctx,
		"UPDATE records SET length = ?, size = ? WHERE live_id = ?", length, size, liveID))
}

func (s *SQLiteStore) GetRecords(ctx context.Context, platform, roomID string) ([]*Record, error) {
	return s.queryRecords(ctx, "SELECT "+recordColumns+" FROM records WHERE platform = ? AND room_id = ? ORDER BY created_at DESC",
		platform, roomID)
}

func (s *SQLiteStore) GetRecord(ctx context.Context, liveID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := scanRecord(s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE live_id = ?", liveID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) RemoveRecord(ctx context.Context, liveID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notFoundIfNone(s.db.ExecContext(ctx, "DELETE FROM records WHERE live_id = ?", liveID))
}

// GetTotalLength 所有录制的总时长（秒）
func (s *SQLiteStore) GetTotalLength(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(length), 0) FROM records").Scan(&total)
	return total, err
}

// GetTodayRecordCount 本地时间今天开始的录制数
func (s *SQLiteStore) GetTodayRecordCount(ctx context.Context) (int64, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE created_at >= ?", midnight.UnixMilli()).Scan(&n)
	return n, err
}

func (s *SQLiteStore) GetRecentRecords(ctx context.Context, offset, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.queryRecords(ctx, "SELECT "+recordColumns+" FROM records ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, offset)
}
