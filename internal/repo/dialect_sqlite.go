package repo

import (
	"strings"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// sqliteDialect работает через modernc.org/sqlite (без cgo).
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Open(dsn string) gorm.Dialector {
	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)"
	}
	return gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
}

// Configure: у SQLite один писатель, держим одно соединение.
func (sqliteDialect) Configure(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

func (sqliteDialect) UpsertSQL() string {
	return "INSERT OR REPLACE INTO wbos (" + strings.Join(wboColumns, ", ") + ") VALUES (" + placeholders(len(wboColumns)) + ")"
}

func (sqliteDialect) SelectSQL(columns, where, orderBy string, limit, offset int) string {
	var b strings.Builder
	selectHead(&b, columns, where, orderBy)
	limitOffsetSQL(&b, limit, offset, "-1")
	return b.String()
}
