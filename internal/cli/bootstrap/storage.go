package bootstrap

import (
	"fmt"

	"WeaveSync/internal/config"
	"WeaveSync/internal/logger"
	"WeaveSync/internal/repo"
	"WeaveSync/internal/service"

	"go.uber.org/zap"
)

// App - сервисы, с которыми работают административные команды.
type App struct {
	Users  *service.UserService
	Sync   *service.SyncService
	Logger *zap.SugaredLogger
}

// Open подключается к той же БД, что и сервер, выполняет миграции
// и возвращает (app, cleanup, error).
// cleanup необходимо вызвать после окончания работы, чтобы закрыть соединение с БД.
func Open(cfg *config.Config) (*App, func() error, error) {
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	db, d, err := repo.InitDB(cfg.DatabaseDriver, cfg.DatabaseDSN, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}

	store := repo.NewStorage(db, d)
	users := service.NewUserService(store, service.WithBcryptCost(cfg.BcryptCost))
	app := &App{
		Users:  users,
		Sync:   service.NewSyncService(store, users, log),
		Logger: log,
	}
	closed := false
	cleanup := func() error {
		if closed {
			return nil
		}
		closed = true
		_ = log.Sync()
		return sqlDB.Close()
	}
	return app, cleanup, nil
}
