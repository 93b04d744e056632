package migration

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(category DatabaseCategory) *DatabaseSchema {
	return &DatabaseSchema{
		Type:     "test",
		Category: category,
		MigrationSource: EmbedSource{
			FS: fstest.MapFS{
				"migrations/000001_init.up.sql":   {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT);")},
				"migrations/000001_init.down.sql": {Data: []byte("DROP TABLE items;")},
			},
			SubDir: "migrations",
		},
	}
}

func TestMigrator_Run(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db", "test.db")
	m, err := NewMigrator(&MigrationConfig{DBPath: dbPath, Schema: testSchema(CategoryNormal)})
	require.NoError(t, err)

	result, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, uint(1), result.ToVersion)
	assert.Empty(t, result.BackupPath)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("INSERT INTO items (name) VALUES ('a')")
	require.NoError(t, err)

	// 第二次执行没有新的迁移
	result, err = m.Run()
	require.NoError(t, err)
	assert.Equal(t, uint(1), result.FromVersion)
	assert.Equal(t, uint(1), result.ToVersion)
}

func TestMigrator_CriticalBackup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "critical.db")
	m, err := NewMigrator(&MigrationConfig{DBPath: dbPath, Schema: testSchema(CategoryCritical)})
	require.NoError(t, err)

	// 新数据库不需要备份
	result, err := m.Run()
	require.NoError(t, err)
	assert.Empty(t, result.BackupPath)

	result, err = m.Run()
	require.NoError(t, err)
	assert.FileExists(t, result.BackupPath)
	// 迁移结束后锁文件被删除
	assert.NoFileExists(t, dbPath+lockExtension)
}

func TestMigrator_Locked(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locked.db")
	require.NoError(t, os.WriteFile(dbPath+lockExtension, []byte(`{"pid":1}`), 0644))

	m, err := NewMigrator(&MigrationConfig{DBPath: dbPath, Schema: testSchema(CategoryNormal)})
	require.NoError(t, err)
	_, err = m.Run()
	assert.ErrorIs(t, err, ErrLocked)

	recovered, err := m.CheckAndRecover()
	require.NoError(t, err)
	assert.True(t, recovered)
	_, err = m.Run()
	assert.NoError(t, err)
}

func TestBackupManager_RestoreBackup(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	backupPath := dbPath + backupInfix + "20260101_000000"
	require.NoError(t, os.WriteFile(backupPath, []byte("backup content"), 0644))
	require.NoError(t, os.WriteFile(dbPath, []byte("current content"), 0644))

	require.NoError(t, NewBackupManager(dbPath).RestoreBackup(backupPath))
	content, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "backup content", string(content))
}

func TestBackupManager_CleanupOldBackups(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	for i := 0; i < MaxBackupCount+2; i++ {
		name := dbPath + backupInfix + "2026010" + string(rune('1'+i)) + "_000000"
		require.NoError(t, os.WriteFile(name, nil, 0644))
	}
	bm := NewBackupManager(dbPath)
	require.NoError(t, bm.CleanupOldBackups())
	backups, err := bm.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackupCount)
	// 保留最新的备份
	assert.Equal(t, dbPath+backupInfix+"20260107_000000", backups[0])
}

func TestRegisterSchema(t *testing.T) {
	s := testSchema(CategoryNormal)
	s.Type = "registry-test"
	require.NoError(t, RegisterSchema(s))
	assert.Error(t, RegisterSchema(s))
	got, err := GetSchema("registry-test")
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Contains(t, ListSchemas(), DatabaseType("registry-test"))
	_, err = GetSchema("missing")
	assert.Error(t, err)
}
