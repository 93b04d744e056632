package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/bililive-go/shadowreplay/src/consts"
	"github.com/bililive-go/shadowreplay/src/danmu"
	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/pkg/migration"
)

const (
	JournalFile = "journal.db"

	DefaultContiguityTolerance = 10 * time.Second
)

var (
	ErrSessionClosed       = errors.New("session closed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExists       = errors.New("session already exists")
	ErrSegmentWrite        = errors.New("segment write failed")
	ErrIncompatibleJournal = errors.New("journal written by an incompatible version")
)

// Meta 创建会话时确定的信息
type Meta struct {
	Platform  string    `json:"platform"`
	RoomID    string    `json:"room_id"`
	LiveID    string    `json:"live_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
}

// SessionInfo 会话摘要，EndTime 为零值表示仍在录制
type SessionInfo struct {
	Meta
	EndTime      time.Time `json:"end_time,omitempty"`
	EndReason    string    `json:"end_reason,omitempty"`
	Length       float64   `json:"length"`
	Size         int64     `json:"size"`
	SegmentCount int       `json:"segment_count"`
	AppVersion   string    `json:"app_version"`
}

func (s *SessionInfo) Closed() bool {
	return !s.EndTime.IsZero()
}

type Segment struct {
	Sequence      int64     `json:"seq"`
	Size          int64     `json:"size"`
	Timestamp     time.Time `json:"timestamp"`
	Duration      float64   `json:"duration"`
	Offset        float64   `json:"offset"`
	Path          string    `json:"-"`
	Discontinuity bool      `json:"discontinuity"`
}

// FileName 分片文件名，与序号一一对应
func FileName(seq int64) string {
	return fmt.Sprintf("%06d.ts", seq)
}

type Option func(*Journal)

func WithContiguityTolerance(d time.Duration) Option {
	return func(j *Journal) { j.tolerance = d }
}

func WithLogger(l *logrus.Entry) Option {
	return func(j *Journal) { j.logger = l }
}

// Journal 单场直播的目录：分片文件加 journal.db。
// 分片只会追加，已提交的序号不会被覆盖。
type Journal struct {
	dir       string
	db        *sql.DB
	tolerance time.Duration
	logger    *logrus.Entry

	// closeMu 写操作持读锁，Close 持写锁等待进行中的写入完成
	closeMu sync.RWMutex
	closed  bool

	segMu   sync.Mutex
	last    *Segment
	nextSeq int64
	offset  float64
}

func newJournal(dir string, opts []Option) *Journal {
	j := &Journal{
		dir:       dir,
		tolerance: DefaultContiguityTolerance,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = logrus.WithField("module", "archive")
	}
	j.logger = j.logger.WithField("session", filepath.Base(dir))
	return j
}

func (j *Journal) openDB() error {
	// 录制中的会话可能同时被列表接口打开
	db, err := sql.Open("sqlite", "file:"+filepath.Join(j.dir, JournalFile)+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("打开数据库失败: %w", err)
	}
	// 分片与弹幕共用一个连接，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)
	migrator, err := migration.NewMigrator(&migration.MigrationConfig{
		DBPath: filepath.Join(j.dir, JournalFile),
		Schema: JournalDatabaseSchema,
		DB:     db,
	})
	if err != nil {
		db.Close()
		return err
	}
	if _, err := migrator.Run(); err != nil {
		db.Close()
		return fmt.Errorf("迁移失败: %w", err)
	}
	j.db = db
	return nil
}

// Create 在 dir 下新建会话，目录中已有 journal.db 时失败
func Create(dir string, meta Meta, opts ...Option) (*Journal, error) {
	if _, err := os.Stat(filepath.Join(dir, JournalFile)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentWrite, err)
	}
	j := newJournal(dir, opts)
	if err := j.openDB(); err != nil {
		return nil, err
	}
	if meta.StartTime.IsZero() {
		meta.StartTime = time.Now()
	}
	_, err := j.db.Exec(`
		INSERT INTO session (id, platform, room_id, live_id, title, start_time, app_version)
		VALUES (1, ?, ?, ?, ?, ?, ?)
	`, meta.Platform, meta.RoomID, meta.LiveID, meta.Title, meta.StartTime.UnixMilli(), consts.Version())
	if err != nil {
		j.db.Close()
		return nil, fmt.Errorf("写入会话信息失败: %w", err)
	}
	return j, nil
}

// Open 打开已有会话，已关闭的会话只读
func Open(dir string, opts ...Option) (*Journal, error) {
	if _, err := os.Stat(filepath.Join(dir, JournalFile)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, dir)
	}
	j := newJournal(dir, opts)
	if err := j.openDB(); err != nil {
		return nil, err
	}
	info, err := j.Info()
	if err != nil {
		j.db.Close()
		return nil, err
	}
	if !consts.IsCompatible(info.AppVersion) {
		j.db.Close()
		return nil, fmt.Errorf("%w: %s", ErrIncompatibleJournal, info.AppVersion)
	}
	j.closed = info.Closed()

	var (
		seg  Segment
		ts   int64
		disc int
		file string
	)
	err = j.db.QueryRow(`SELECT seq, file, size, ts_ms, duration, start_offset, discontinuity
		FROM segments ORDER BY seq DESC LIMIT 1`).
		Scan(&seg.Sequence, &file, &seg.Size, &ts, &seg.Duration, &seg.Offset, &disc)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		j.db.Close()
		return nil, err
	default:
		seg.Timestamp = time.UnixMilli(ts)
		seg.Path = filepath.Join(dir, file)
		seg.Discontinuity = disc != 0
		j.last = &seg
		j.nextSeq = seg.Sequence + 1
		j.offset = seg.Offset + seg.Duration
	}
	return j, nil
}

func (j *Journal) Dir() string {
	return j.dir
}

// AppendSegment 先写 .tmp 并 fsync，再改名，最后提交索引
func (j *Journal) AppendSegment(ctx context.Context, chunk *live.Chunk) (*Segment, error) {
	j.closeMu.RLock()
	defer j.closeMu.RUnlock()
	if j.closed {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j.segMu.Lock()
	defer j.segMu.Unlock()

	ts := chunk.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	seg := &Segment{
		Sequence:      j.nextSeq,
		Size:          int64(len(chunk.Data)),
		Timestamp:     ts,
		Duration:      chunk.Duration,
		Offset:        j.offset,
		Path:          filepath.Join(j.dir, FileName(j.nextSeq)),
		Discontinuity: chunk.Discontinuity,
	}
	if j.last != nil {
		expected := time.Duration(j.last.Duration*float64(time.Second)) + j.tolerance
		if ts.Sub(j.last.Timestamp) > expected {
			seg.Discontinuity = true
		}
	}

	if err := writeFileSync(seg.Path, chunk.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentWrite, err)
	}
	disc := 0
	if seg.Discontinuity {
		disc = 1
	}
	_, err := j.db.ExecContext(context.Background(), `
		INSERT INTO segments (seq, file, size, ts_ms, duration, start_offset, discontinuity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, seg.Sequence, FileName(seg.Sequence), seg.Size, ts.UnixMilli(), seg.Duration, seg.Offset, disc)
	if err != nil {
		os.Remove(seg.Path)
		return nil, fmt.Errorf("%w: %v", ErrSegmentWrite, err)
	}

	j.last = seg
	j.nextSeq++
	j.offset += seg.Duration
	return seg, nil
}

func writeFileSync(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// AppendDanmu 实现 danmu.Sink，可与分片写入并发
func (j *Journal) AppendDanmu(ctx context.Context, entries ...danmu.Entry) error {
	j.closeMu.RLock()
	defer j.closeMu.RUnlock()
	if j.closed {
		return ErrSessionClosed
	}
	if len(entries) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO danmu (uid, sender, content, ts_ms, raw) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		var raw sql.NullString
		if len(e.Raw) > 0 {
			raw = sql.NullString{String: string(e.Raw), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, e.UID, e.Sender, e.Text, e.Timestamp.UnixMilli(), raw); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Segments 按序号返回已提交的分片
func (j *Journal) Segments() ([]*Segment, error) {
	rows, err := j.db.Query(`SELECT seq, file, size, ts_ms, duration, start_offset, discontinuity
		FROM segments ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var segs []*Segment
	for rows.Next() {
		var (
			seg  Segment
			file string
			ts   int64
			disc int
		)
		if err := rows.Scan(&seg.Sequence, &file, &seg.Size, &ts, &seg.Duration, &seg.Offset, &disc); err != nil {
			return nil, err
		}
		seg.Timestamp = time.UnixMilli(ts)
		seg.Path = filepath.Join(j.dir, file)
		seg.Discontinuity = disc != 0
		segs = append(segs, &seg)
	}
	return segs, rows.Err()
}

func (j *Journal) Danmu() ([]danmu.Entry, error) {
	rows, err := j.db.Query(`SELECT uid, sender, content, ts_ms, raw FROM danmu ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]danmu.Entry, 0)
	for rows.Next() {
		var (
			e   danmu.Entry
			ts  int64
			raw sql.NullString
		)
		if err := rows.Scan(&e.UID, &e.Sender, &e.Text, &ts, &raw); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ts)
		if raw.Valid {
			e.Raw = []byte(raw.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *Journal) Info() (*SessionInfo, error) {
	var (
		info    SessionInfo
		start   int64
		end     sql.NullInt64
		length  sql.NullFloat64
		size    sql.NullInt64
		segsCnt int
	)
	err := j.db.QueryRow(`SELECT platform, room_id, live_id, title, start_time, end_time, end_reason, app_version
		FROM session WHERE id = 1`).
		Scan(&info.Platform, &info.RoomID, &info.LiveID, &info.Title, &start, &end, &info.EndReason, &info.AppVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, j.dir)
	}
	if err != nil {
		return nil, err
	}
	info.StartTime = time.UnixMilli(start)
	if end.Valid {
		info.EndTime = time.UnixMilli(end.Int64)
	}
	err = j.db.QueryRow(`SELECT COUNT(*), SUM(duration), SUM(size) FROM segments`).Scan(&segsCnt, &length, &size)
	if err != nil {
		return nil, err
	}
	info.SegmentCount = segsCnt
	info.Length = length.Float64
	info.Size = size.Int64
	return &info, nil
}

// SetTitle 直播中标题变化时更新
func (j *Journal) SetTitle(title string) error {
	j.closeMu.RLock()
	defer j.closeMu.RUnlock()
	if j.closed {
		return ErrSessionClosed
	}
	_, err := j.db.Exec(`UPDATE session SET title = ? WHERE id = 1`, title)
	return err
}

// LastSegment 返回最后一个已提交的分片
func (j *Journal) LastSegment() *Segment {
	j.segMu.Lock()
	defer j.segMu.Unlock()
	if j.last == nil {
		return nil
	}
	seg := *j.last
	return &seg
}

func (j *Journal) IsClosed() bool {
	j.closeMu.RLock()
	defer j.closeMu.RUnlock()
	return j.closed
}

// Close 写入结束时间，之后的追加返回 ErrSessionClosed。重复调用无副作用。
func (j *Journal) Close(end time.Time, reason string) error {
	j.closeMu.Lock()
	defer j.closeMu.Unlock()
	if j.closed {
		return nil
	}
	if end.IsZero() {
		end = time.Now()
	}
	if _, err := j.db.Exec(`UPDATE session SET end_time = ?, end_reason = ? WHERE id = 1`, end.UnixMilli(), reason); err != nil {
		return err
	}
	j.closed = true
	j.logger.WithFields(logrus.Fields{
		"end_time": end.Format("2006-01-02 15:04:05"),
		"reason":   reason,
	}).Info("会话已关闭")
	return nil
}

// Release 关闭数据库连接，之后不能再读取
func (j *Journal) Release() error {
	return j.db.Close()
}
