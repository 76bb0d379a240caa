package repo

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect скрывает различия SQL между бэкендами: upsert и постраничную выборку.
// Всё остальное строится через gorm одинаково для всех.
type Dialect interface {
	// Name - имя драйвера из конфигурации.
	Name() string
	// Open возвращает gorm-диалектор для DSN.
	Open(dsn string) gorm.Dialector
	// Configure настраивает пул соединений после открытия.
	Configure(db *gorm.DB) error
	// UpsertSQL - вставка-или-замена одной строки wbos, плейсхолдеры в порядке wboColumns.
	UpsertSQL() string
	// SelectSQL собирает SELECT по wbos с сортировкой и пагинацией.
	// limit <= 0 - без ограничения, offset <= 0 - без смещения.
	SelectSQL(columns, where, orderBy string, limit, offset int) string
}

// wboColumns - порядок колонок для UpsertSQL.
var wboColumns = []string{"user_id", "collection", "id", "modified", "sort_index", "payload", "payload_size", "ttl"}

// DialectFor выбирает адаптер по имени драйвера.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	case "sqlserver", "mssql":
		return sqlserverDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// limitOffsetSQL - общий хвост LIMIT/OFFSET; noLimit подставляется, когда задан только offset.
func limitOffsetSQL(b *strings.Builder, limit, offset int, noLimit string) {
	switch {
	case limit > 0:
		fmt.Fprintf(b, " LIMIT %d", limit)
	case offset > 0 && noLimit != "":
		b.WriteString(" LIMIT " + noLimit)
	}
	if offset > 0 {
		fmt.Fprintf(b, " OFFSET %d", offset)
	}
}

func selectHead(b *strings.Builder, columns, where, orderBy string) {
	b.WriteString("SELECT " + columns + " FROM wbos")
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY " + orderBy)
	}
}
