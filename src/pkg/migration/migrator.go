package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var (
	ErrMigrationFailed = errors.New("migration failed")
	ErrLocked          = errors.New("database is locked by another migration")
)

// Migrator 对单个数据库文件执行迁移
type Migrator struct {
	config *MigrationConfig
	backup *BackupManager
	lock   *lockFile
	logger *logrus.Entry
}

func NewMigrator(config *MigrationConfig) (*Migrator, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.DBPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if config.Schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	return &Migrator{
		config: config,
		backup: NewBackupManager(config.DBPath),
		lock:   newLockFile(config.DBPath),
		logger: logrus.WithFields(logrus.Fields{
			"db_path":     config.DBPath,
			"schema_type": config.Schema.Type,
		}),
	}, nil
}

func (m *Migrator) shouldBackup() bool {
	if m.config.ForceBackup != nil {
		return *m.config.ForceBackup
	}
	return m.config.Schema.Category == CategoryCritical
}

func (m *Migrator) newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	fsys, err := m.config.Schema.MigrationSource.GetFS()
	if err != nil {
		return nil, fmt.Errorf("failed to get migrations fs: %w", err)
	}
	subDir := m.config.Schema.MigrationSource.GetSubDir()
	if subDir == "" {
		subDir = "."
	}
	src, err := iofs.New(fsys, subDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "sqlite", driver)
}

// Run 执行全部未应用的迁移。
// 关键数据库在迁移前备份并写锁文件，迁移失败时从备份恢复。
func (m *Migrator) Run() (*MigrationResult, error) {
	if m.lock.exists() {
		return nil, fmt.Errorf("%w: %s", ErrLocked, m.lock.path)
	}
	if err := os.MkdirAll(filepath.Dir(m.config.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db := m.config.DB
	if db == nil {
		var err error
		if db, err = sql.Open("sqlite", m.config.DBPath); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	mig, err := m.newMigrate(db)
	if err != nil {
		return nil, err
	}
	result := &MigrationResult{}
	result.FromVersion, result.WasDirty, _ = mig.Version()

	if m.shouldBackup() {
		if result.BackupPath, err = m.backup.CreateBackup(); err != nil {
			return nil, err
		}
		if result.BackupPath != "" {
			info := &LockInfo{
				DBPath:      m.config.DBPath,
				BackupPath:  result.BackupPath,
				StartTime:   time.Now().Format(time.RFC3339),
				FromVersion: result.FromVersion,
				PID:         os.Getpid(),
				SchemaType:  m.config.Schema.Type,
			}
			if err := m.lock.acquire(info); err != nil {
				return nil, err
			}
			defer m.lock.release()
		}
	}

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if result.BackupPath != "" {
			m.logger.WithError(err).Error("migration failed, restoring backup")
			if rbErr := m.backup.RestoreBackup(result.BackupPath); rbErr != nil {
				return result, fmt.Errorf("%w: %v (rollback also failed: %v)", ErrMigrationFailed, err, rbErr)
			}
		}
		return result, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	result.ToVersion, _, _ = mig.Version()
	if result.FromVersion != result.ToVersion {
		m.logger.WithFields(logrus.Fields{
			"from_version": result.FromVersion,
			"to_version":   result.ToVersion,
			"backup_path":  result.BackupPath,
		}).Info("database migration completed")
	}
	return result, nil
}

// CheckAndRecover 处理上次未完成的迁移：关键数据库从锁文件记录的备份恢复，然后删除锁文件
func (m *Migrator) CheckAndRecover() (bool, error) {
	if !m.lock.exists() {
		return false, nil
	}
	info, err := m.lock.read()
	if err != nil {
		return false, fmt.Errorf("failed to read lock info: %w", err)
	}
	m.logger.WithFields(logrus.Fields{
		"start_time":  info.StartTime,
		"pid":         info.PID,
		"backup_path": info.BackupPath,
	}).Warn("detected incomplete migration, attempting recovery")

	if m.config.Schema.Category == CategoryCritical && info.BackupPath != "" {
		if err := m.backup.RestoreBackup(info.BackupPath); err != nil {
			return true, fmt.Errorf("recovery failed: %w", err)
		}
	}
	m.lock.release()
	return true, nil
}
