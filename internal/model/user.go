package model

import "time"

// User - учётная запись синхронизации.
// WBO пользователя удаляются вместе с ним в DeleteUser.
type User struct {
	ID       int64   `gorm:"primaryKey"`
	UserName string  `gorm:"uniqueIndex;size:32;not null"`
	Email    *string `gorm:"index;size:255"`
	// Password хранит bcrypt-хеш, не сам пароль.
	Password string `gorm:"size:255;not null" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
