package repo

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
)

// sqlserverDialect - SQL Server и совместимые: нет REPLACE и LIMIT.
type sqlserverDialect struct{}

func (sqlserverDialect) Name() string { return "sqlserver" }

func (sqlserverDialect) Open(dsn string) gorm.Dialector {
	return sqlserver.Open(dsn)
}

func (sqlserverDialect) Configure(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return nil
}

// UpsertSQL - атомарный MERGE; HOLDLOCK закрывает гонку между проверкой и вставкой.
func (sqlserverDialect) UpsertSQL() string {
	src := make([]string, 0, len(wboColumns))
	vals := make([]string, 0, len(wboColumns))
	for _, c := range wboColumns {
		src = append(src, "? AS "+c)
		vals = append(vals, "s."+c)
	}
	sets := make([]string, 0, len(wboColumns))
	for _, c := range wboColumns[3:] {
		sets = append(sets, "t."+c+" = s."+c)
	}
	return "MERGE INTO wbos WITH (HOLDLOCK) AS t" +
		" USING (SELECT " + strings.Join(src, ", ") + ") AS s" +
		" ON t.user_id = s.user_id AND t.collection = s.collection AND t.id = s.id" +
		" WHEN MATCHED THEN UPDATE SET " + strings.Join(sets, ", ") +
		" WHEN NOT MATCHED THEN INSERT (" + strings.Join(wboColumns, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ");"
}

// SelectSQL: без смещения хватает TOP; со смещением нужен OFFSET ... FETCH,
// а он требует ORDER BY.
func (sqlserverDialect) SelectSQL(columns, where, orderBy string, limit, offset int) string {
	var b strings.Builder
	if offset <= 0 {
		if limit > 0 {
			columns = fmt.Sprintf("TOP (%d) %s", limit, columns)
		}
		selectHead(&b, columns, where, orderBy)
		return b.String()
	}
	if orderBy == "" {
		orderBy = "id"
	}
	selectHead(&b, columns, where, orderBy)
	fmt.Fprintf(&b, " OFFSET %d ROWS", offset)
	if limit > 0 {
		fmt.Fprintf(&b, " FETCH NEXT %d ROWS ONLY", limit)
	}
	return b.String()
}
