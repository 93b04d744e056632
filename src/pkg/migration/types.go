// Package migration 基于 golang-migrate 的 SQLite 迁移封装。
// 每种数据库注册一个 DatabaseSchema，按分类决定是否备份、失败时是否回滚。
package migration

import (
	"database/sql"
	"io/fs"
)

// DatabaseType 数据库类型
type DatabaseType string

// DatabaseCategory 决定迁移时的备份与恢复行为
type DatabaseCategory int

const (
	// CategoryCritical 账号、房间等关键数据，迁移前备份，失败时回滚
	CategoryCritical DatabaseCategory = iota
	// CategoryNormal 普通数据，不主动备份
	CategoryNormal
	// CategoryDisposable 单场录制的索引等可重建数据
	CategoryDisposable
)

// MigrationSource 迁移 SQL 文件来源
type MigrationSource interface {
	GetFS() (fs.FS, error)
	// GetSubDir 迁移文件在 FS 中的子目录
	GetSubDir() string
}

// EmbedSource 由 //go:embed 提供的迁移文件
type EmbedSource struct {
	FS     fs.FS
	SubDir string
}

func (s EmbedSource) GetFS() (fs.FS, error) {
	return s.FS, nil
}

func (s EmbedSource) GetSubDir() string {
	return s.SubDir
}

type DatabaseSchema struct {
	Type            DatabaseType
	Category        DatabaseCategory
	MigrationSource MigrationSource
	Description     string
}

type MigrationConfig struct {
	DBPath string
	Schema *DatabaseSchema
	// ForceBackup 覆盖按分类决定的备份行为
	ForceBackup *bool
	// DB 已打开的连接，为 nil 时自动打开
	DB *sql.DB
}

type MigrationResult struct {
	FromVersion uint
	ToVersion   uint
	BackupPath  string
	WasDirty    bool
}

// LockInfo 迁移进行中写入的锁文件内容
type LockInfo struct {
	DBPath      string       `json:"db_path"`
	BackupPath  string       `json:"backup_path"`
	StartTime   string       `json:"start_time"`
	FromVersion uint         `json:"from_version"`
	PID         int          `json:"pid"`
	SchemaType  DatabaseType `json:"schema_type"`
}
