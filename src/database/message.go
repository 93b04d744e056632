package database

import (
	"context"
	"time"
)

// NewMessage 写入一条站内消息
func (s *SQLiteStore) NewMessage(ctx context.Context, title, content string) (*Message, error) {
	m := &Message{Title: title, Content: content, CreatedAt: s.now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (title, content, read, created_at) VALUES (?, ?, 0, ?)",
		title, content, m.CreatedAt.UnixMilli())
	if err != nil {
		return nil, err
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessages 新消息在前
func (s *SQLiteStore) GetMessages(ctx context.Context) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, content, read, created_at FROM messages ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	messages := make([]*Message, 0)
	for rows.Next() {
		var (
			m       Message
			read    int
			created int64
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.Content, &read, &created); err != nil {
			return nil, err
		}
		m.Read = read != 0
		m.CreatedAt = time.UnixMilli(created)
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) ReadMessage(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notFoundIfNone(s.db.ExecContext(ctx, "UPDATE messages SET read = 1 WHERE id = ?", id))
}

func (s *SQLiteStore) DeleteMessage(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notFoundIfNone(s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id))
}
