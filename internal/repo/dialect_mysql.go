package repo

import (
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Open(dsn string) gorm.Dialector {
	return mysql.Open(dsn)
}

func (mysqlDialect) Configure(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return nil
}

// UpsertSQL: REPLACE удаляет старую строку и вставляет новую - полная замена.
func (mysqlDialect) UpsertSQL() string {
	return "REPLACE INTO wbos (" + strings.Join(wboColumns, ", ") + ") VALUES (" + placeholders(len(wboColumns)) + ")"
}

func (mysqlDialect) SelectSQL(columns, where, orderBy string, limit, offset int) string {
	var b strings.Builder
	selectHead(&b, columns, where, orderBy)
	// MySQL не умеет OFFSET без LIMIT
	limitOffsetSQL(&b, limit, offset, "18446744073709551615")
	return b.String()
}
