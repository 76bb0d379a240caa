package service

import (
	"context"
	"errors"
	"fmt"

	"WeaveSync/internal/model"
	"WeaveSync/internal/repo"
	"WeaveSync/internal/weave"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength - пароли короче считаются слабыми.
const MinPasswordLength = 8

var (
	ErrLoginTaken         = errors.New("login already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrInvalidUserName    = errors.New("invalid user name")
	ErrUserNotFound       = errors.New("user not found")
)

// UserService - учётные записи: регистрация, проверка пароля, смена и удаление.
type UserService struct {
	repo repo.UserRepository
	cost int
}

// UserOption настраивает UserService.
type UserOption func(*UserService)

// WithBcryptCost задаёт стоимость bcrypt; значения вне допустимого диапазона игнорируются.
func WithBcryptCost(cost int) UserOption {
	return func(s *UserService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func NewUserService(r repo.UserRepository, opts ...UserOption) *UserService {
	s := &UserService{repo: r, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Register создаёт пользователя. email может быть пустым.
func (s *UserService) Register(ctx context.Context, userName, password, email string) (*model.User, error) {
	if !weave.ValidUserName(userName) {
		return nil, ErrInvalidUserName
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	free, err := s.repo.IsUserNameUnique(ctx, userName)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrLoginTaken
	}

	user := &model.User{UserName: userName, Password: hash}
	if email != "" {
		user.Email = &email
	}
	return s.repo.CreateUser(ctx, user)
}

// Authenticate ищет пользователя по имени или email и сверяет пароль с bcrypt-хешем.
// Для неизвестного пользователя и неверного пароля возвращается одна и та же ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	user, err := s.repo.GetUserByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	err = s.repo.ChangePassword(ctx, userID, hash)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

// ChangePasswordByName - смена пароля из админки, без знания старого.
func (s *UserService) ChangePasswordByName(ctx context.Context, userName, password string) error {
	user, err := s.find(ctx, userName)
	if err != nil {
		return err
	}
	return s.ChangePassword(ctx, user.ID, password)
}

// DeleteUser удаляет пользователя вместе со всеми его WBO.
func (s *UserService) DeleteUser(ctx context.Context, userName string) error {
	user, err := s.find(ctx, userName)
	if err != nil {
		return err
	}
	err = s.repo.DeleteUser(ctx, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) UserDetails(ctx context.Context, userName string) (*model.UserDetails, error) {
	d, err := s.repo.GetUserDetails(ctx, userName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return d, err
}

func (s *UserService) find(ctx context.Context, userName string) (*model.User, error) {
	if !weave.ValidUserName(userName) {
		return nil, ErrInvalidUserName
	}
	user, err := s.repo.GetUserByLogin(ctx, userName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
