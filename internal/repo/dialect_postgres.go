package repo

import (
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Open(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

func (postgresDialect) Configure(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return nil
}

func (postgresDialect) UpsertSQL() string {
	sets := make([]string, 0, len(wboColumns))
	for _, c := range wboColumns[3:] {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return "INSERT INTO wbos (" + strings.Join(wboColumns, ", ") + ") VALUES (" + placeholders(len(wboColumns)) + ")" +
		" ON CONFLICT (user_id, collection, id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func (postgresDialect) SelectSQL(columns, where, orderBy string, limit, offset int) string {
	var b strings.Builder
	selectHead(&b, columns, where, orderBy)
	limitOffsetSQL(&b, limit, offset, "")
	return b.String()
}
