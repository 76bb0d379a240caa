package repo

import (
	"fmt"

	"WeaveSync/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InitDB открывает БД выбранного драйвера, настраивает пул и создаёт схему.
// Предупреждения gorm уходят в log.
func InitDB(driver, dsn string, log *zap.SugaredLogger) (*gorm.DB, Dialect, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(d.Open(dsn), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	if err := d.Configure(db); err != nil {
		return nil, nil, fmt.Errorf("configure pool: %w", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Wbo{}); err != nil {
		return nil, nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, d, nil
}
