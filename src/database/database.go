// Package database 账号、直播间、录制记录与消息的持久化存储
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/bililive-go/shadowreplay/src/consts"
	"github.com/bililive-go/shadowreplay/src/live/credential"
	"github.com/bililive-go/shadowreplay/src/pkg/migration"
)

const (
	DatabaseTypeMain migration.DatabaseType = "main"

	DBFile = "data.db"
)

var (
	ErrNotFound      = errors.New("Not found")
	ErrAlreadyExists = errors.New("already exists")
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MainDatabaseSchema 账号与直播间数据丢失无法重建，迁移前备份
var MainDatabaseSchema = &migration.DatabaseSchema{
	Type:     DatabaseTypeMain,
	Category: migration.CategoryCritical,
	MigrationSource: migration.EmbedSource{
		FS:     embeddedMigrations,
		SubDir: "migrations",
	},
	Description: "账号、直播间、录制记录与消息",
}

func init() {
	migration.MustRegisterSchema(MainDatabaseSchema)
}

type Account struct {
	Platform  string    `json:"platform"`
	UID       int64     `json:"uid"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	CSRF      string    `json:"csrf"`
	Cookies   string    `json:"cookies"`
	CreatedAt time.Time `json:"created_at"`
}

// Credential 转换为平台接口使用的凭据
func (a *Account) Credential() *credential.Credential {
	if a == nil {
		return nil
	}
	return &credential.Credential{
		Platform: a.Platform,
		UID:      strconv.FormatInt(a.UID, 10),
		CSRF:     a.CSRF,
		Cookies:  a.Cookies,
	}
}

type RecorderRow struct {
	Platform  string    `json:"platform"`
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Record 一场录制的摘要
type Record struct {
	LiveID    string    `json:"live_id"`
	Platform  string    `json:"platform"`
	RoomID    string    `json:"room_id"`
	Title     string    `json:"title"`
	Length    float64   `json:"length"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	AddAccount(ctx context.Context, platform, cookies string) (*Account, error)
	RemoveAccount(ctx context.Context, platform string, uid int64) error
	UpdateAccount(ctx context.Context, platform string, uid int64, name, avatar string) error
	GetAccounts(ctx context.Context) ([]*Account, error)
	GetAccount(ctx context.Context, platform string, uid int64) (*Account, error)
	GetAccountByPlatform(ctx context.Context, platform string) (*Account, error)

	AddRecorder(ctx context.Context, platform, roomID string) (*RecorderRow, error)
	RemoveRecorder(ctx context.Context, platform, roomID string) error
	GetRecorders(ctx context.Context) ([]*RecorderRow, error)

	AddRecord(ctx context.Context, platform, roomID, liveID, title string, start time.Time) (*Record, error)
	UpdateRecord(ctx context.Context, liveID string, length float64, size int64) error
	GetRecords(ctx context.Context, platform, roomID string) ([]*Record, error)
	GetRecord(ctx context.Context, liveID string) (*Record, error)
	RemoveRecord(ctx context.Context, liveID string) error
	GetTotalLength(ctx context.Context) (float64, error)
	GetTodayRecordCount(ctx context.Context) (int64, error)
	GetRecentRecords(ctx context.Context, offset, limit int) ([]*Record, error)

	NewMessage(ctx context.Context, title, content string) (*Message, error)
	GetMessages(ctx context.Context) ([]*Message, error)
	ReadMessage(ctx context.Context, id int64) error
	DeleteMessage(ctx context.Context, id int64) error

	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}

// SQLiteStore Store 的 SQLite 实现
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	// now 测试中替换
	now    func() time.Time
	logger *logrus.Entry
	mu     sync.RWMutex
}

// Open 打开 dbDir 下的数据库并执行迁移
func Open(dbDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}
	dbPath := filepath.Join(dbDir, DBFile)
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
		logger: logrus.WithField("module", "database"),
	}
	if err := s.runMigrations(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("运行数据库迁移失败: %w", err)
	}
	if err := s.updateVersionInfo(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("更新版本信息失败: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) runMigrations() error {
	config := &migration.MigrationConfig{
		DBPath: s.dbPath,
		Schema: MainDatabaseSchema,
		DB:     s.db,
	}
	migrator, err := migration.NewMigrator(config)
	if err != nil {
		return fmt.Errorf("创建迁移器失败: %w", err)
	}
	recovered, err := migrator.CheckAndRecover()
	if err != nil {
		s.logger.WithError(err).Warn("迁移恢复检查失败")
	}
	if recovered {
		s.logger.Info("从未完成的迁移中恢复")
		s.db.Close()
		db, err := sql.Open("sqlite", "file:"+s.dbPath+"?_pragma=busy_timeout(5000)")
		if err != nil {
			return fmt.Errorf("恢复后重新打开数据库失败: %w", err)
		}
		s.db = db
		config.DB = db
		if migrator, err = migration.NewMigrator(config); err != nil {
			return fmt.Errorf("恢复后重新创建迁移器失败: %w", err)
		}
	}
	result, err := migrator.Run()
	if err != nil {
		return fmt.Errorf("迁移失败: %w", err)
	}
	if result.BackupPath != "" {
		s.logger.WithField("backup_path", result.BackupPath).Debug("已创建数据库备份")
	}
	return nil
}

func (s *SQLiteStore) updateVersionInfo() error {
	ctx := context.Background()
	old, err := s.GetMeta(ctx, "app_version")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if old != "" && !consts.IsCompatible(old) {
		return fmt.Errorf("数据库由不兼容的版本 %s 写入", old)
	}
	if old != consts.Version() {
		s.logger.WithFields(logrus.Fields{
			"old_version": old,
			"new_version": consts.Version(),
		}).Info("更新数据库版本信息")
	}
	return s.SetMeta(ctx, "app_version", consts.Version())
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func notFoundIfNone(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func existsIfNone(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM system_meta WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.now().UnixMilli())
	return err
}
