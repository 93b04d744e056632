package migration

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupInfix   = ".backup_"
	lockExtension = ".migration.lock"
	// MaxBackupCount 每个数据库最多保留的备份数
	MaxBackupCount = 5
)

// BackupManager 管理数据库文件的备份与恢复
type BackupManager struct {
	dbPath string
}

func NewBackupManager(dbPath string) *BackupManager {
	return &BackupManager{dbPath: dbPath}
}

// CreateBackup 复制数据库文件，数据库尚不存在时返回空路径
func (m *BackupManager) CreateBackup() (string, error) {
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", nil
	}
	backupPath := m.dbPath + backupInfix + time.Now().Format("20060102_150405")
	if err := copyFile(m.dbPath, backupPath); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	_ = m.CleanupOldBackups()
	return backupPath, nil
}

func (m *BackupManager) RestoreBackup(backupPath string) error {
	if backupPath == "" {
		return fmt.Errorf("backup path is empty")
	}
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}
	if err := os.Remove(m.dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove current database: %w", err)
	}
	if err := copyFile(backupPath, m.dbPath); err != nil {
		return fmt.Errorf("failed to restore from backup: %w", err)
	}
	return nil
}

// ListBackups 按时间倒序返回所有备份
func (m *BackupManager) ListBackups() ([]string, error) {
	dir := filepath.Dir(m.dbPath)
	prefix := filepath.Base(m.dbPath) + backupInfix
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func (m *BackupManager) CleanupOldBackups() error {
	backups, err := m.ListBackups()
	if err != nil || len(backups) <= MaxBackupCount {
		return err
	}
	for _, b := range backups[MaxBackupCount:] {
		if err := os.Remove(b); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return err
	}
	return out.Sync()
}

// lockFile 迁移期间存在，进程异常退出后据此判断需要恢复
type lockFile struct {
	path string
}

func newLockFile(dbPath string) *lockFile {
	return &lockFile{path: dbPath + lockExtension}
}

func (l *lockFile) exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

func (l *lockFile) acquire(info *LockInfo) error {
	if l.exists() {
		existing, err := l.read()
		if err != nil {
			return fmt.Errorf("%w: lock file unreadable: %v", ErrLocked, err)
		}
		return fmt.Errorf("%w: started at %s (PID: %d)", ErrLocked, existing.StartTime, existing.PID)
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0644)
}

func (l *lockFile) read() (*LockInfo, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (l *lockFile) release() {
	_ = os.Remove(l.path)
}
