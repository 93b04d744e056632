package archive

import (
	"embed"

	"github.com/bililive-go/shadowreplay/src/pkg/migration"
)

// DatabaseTypeJournal 单场直播的分片与弹幕索引
const DatabaseTypeJournal migration.DatabaseType = "journal"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var JournalDatabaseSchema = &migration.DatabaseSchema{
	Type:     DatabaseTypeJournal,
	Category: migration.CategoryDisposable,
	MigrationSource: migration.EmbedSource{
		FS:     embeddedMigrations,
		SubDir: "migrations",
	},
	Description: "单场直播的分片、弹幕与会话信息",
}

func init() {
	migration.MustRegisterSchema(JournalDatabaseSchema)
}
