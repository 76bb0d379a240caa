package repo

import "gorm.io/gorm"

// Storage - всё, что нужно движку синхронизации и админке от хранилища.
type Storage interface {
	UserRepository
	WboRepository
}

type storage struct {
	UserRepository
	WboRepository
}

// NewStorage собирает оба репозитория поверх одного соединения.
func NewStorage(db *gorm.DB, d Dialect, opts ...Option) Storage {
	return &storage{
		UserRepository: NewUserRepository(db, opts...),
		WboRepository:  NewWboRepository(db, d, opts...),
	}
}
