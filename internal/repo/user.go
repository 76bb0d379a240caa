package repo

import (
	"context"
	"strings"
	"time"

	"WeaveSync/internal/collection"
	"WeaveSync/internal/model"

	"gorm.io/gorm"
)

// UserRepository - учётные записи и отчёты для админки.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	// GetUserByLogin ищет по email, если в логине есть '@', иначе по имени.
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	IsUserNameUnique(ctx context.Context, userName string) (bool, error)
	ChangePassword(ctx context.Context, userID int64, passwordHash string) error
	// DeleteUser удаляет пользователя и все его WBO в одной транзакции.
	DeleteUser(ctx context.Context, userID int64) error
	ListUsers(ctx context.Context) ([]model.UserSummary, error)
	GetUserDetails(ctx context.Context, userName string) (*model.UserDetails, error)
}

type userRepo struct {
	db *gorm.DB
	options
}

// NewUserRepository создаёт реализацию репозитория пользователей.
func NewUserRepository(db *gorm.DB, opts ...Option) UserRepository {
	return &userRepo{db: db, options: newOptions(opts)}
}

func (r *userRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	user.UserName = strings.ToLower(user.UserName)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	q := r.db.WithContext(ctx)
	if strings.Contains(login, "@") {
		q = q.Where("email = ?", login)
	} else {
		q = q.Where("user_name = ?", strings.ToLower(login))
	}
	if err := q.Take(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) IsUserNameUnique(ctx context.Context, userName string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("user_name = ?", strings.ToLower(userName)).
		Count(&n).Error
	return n == 0, err
}

func (r *userRepo) ChangePassword(ctx context.Context, userID int64, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("password", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) DeleteUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Wbo{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

type userSummaryRow struct {
	ID         int64
	UserName   string
	Email      *string
	CreatedAt  time.Time
	WboCount   int64
	TotalBytes int64
}

func (row userSummaryRow) summary() model.UserSummary {
	return model.UserSummary{
		ID:        row.ID,
		UserName:  row.UserName,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
		WboCount:  row.WboCount,
		TotalKB:   float64(row.TotalBytes) / 1024,
	}
}

func (r *userRepo) summaries(ctx context.Context, userName string) ([]userSummaryRow, error) {
	q := r.db.WithContext(ctx).Table("users AS u").
		Select("u.id, u.user_name, u.email, u.created_at, COUNT(w.id) AS wbo_count, COALESCE(SUM(w.payload_size), 0) AS total_bytes").
		Joins("LEFT JOIN wbos AS w ON w.user_id = u.id AND w.ttl > ?", r.now().Unix()).
		Group("u.id, u.user_name, u.email, u.created_at").
		Order("u.user_name")
	if userName != "" {
		q = q.Where("u.user_name = ?", strings.ToLower(userName))
	}
	var rows []userSummaryRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userRepo) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	rows, err := r.summaries(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]model.UserSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.summary())
	}
	return out, nil
}

func (r *userRepo) GetUserDetails(ctx context.Context, userName string) (*model.UserDetails, error) {
	rows, err := r.summaries(ctx, userName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	details := &model.UserDetails{UserSummary: rows[0].summary(), Collections: []model.CollectionDetails{}}

	var stats []struct {
		Collection int
		Count      int64
		Bytes      int64
		Modified   float64
	}
	err = r.db.WithContext(ctx).Model(&model.Wbo{}).
		Select("collection, COUNT(*) AS count, COALESCE(SUM(payload_size), 0) AS bytes, MAX(modified) AS modified").
		Where("user_id = ? AND ttl > ?", details.ID, r.now().Unix()).
		Group("collection").
		Order("collection").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	for _, s := range stats {
		name := collection.CodeToName(s.Collection)
		if name == "" {
			continue
		}
		details.Collections = append(details.Collections, model.CollectionDetails{
			Name: name, Count: s.Count, Bytes: s.Bytes, Modified: s.Modified,
		})
	}
	return details, nil
}
