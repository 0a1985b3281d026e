package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tasktracker/internal/core/auth"
	"tasktracker/internal/domain"
	"tasktracker/pkg/utils"
)

// WelcomeSender 每次注册成功调用一次，不能让注册失败
type WelcomeSender interface {
	SendWelcome(ctx context.Context, u domain.User)
}

type UserService struct {
	users   domain.UserRepository
	jwter   *auth.JWTer
	welcome WelcomeSender
	log     *zap.Logger
}

func NewUserService(users domain.UserRepository, jwter *auth.JWTer, welcome WelcomeSender, log *zap.Logger) *UserService {
	return &UserService{users: users, jwter: jwter, welcome: welcome, log: log.Named("user_service")}
}

func (s *UserService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, validationf("username is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, validationf("password is required")
	}
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, conflictf("username already exists")
	}
	if email != "" {
		taken, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return nil, conflictf("email already exists")
		}
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if email != "" {
		u.Email = &email
	}
	if err := s.users.Create(ctx, u); err != nil {
		// 并发注册被唯一索引拦下
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("username or email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.String("username", u.Username))

	if s.welcome != nil {
		s.sendWelcome(ctx, *u)
	}
	return u, nil
}

func (s *UserService) sendWelcome(ctx context.Context, u domain.User) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("welcome message failed", zap.String("username", u.Username), zap.Any("panic", r))
		}
	}()
	s.welcome.SendWelcome(ctx, u)
}

// Login 校验密码并签发 access token
func (s *UserService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrUnauthorized
	}
	tok, err := s.jwter.Issue(u.ID, u.Username, string(u.Role))
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

func (s *UserService) Me(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateProfile 设置联系邮箱，空串表示清除
func (s *UserService) UpdateProfile(ctx context.Context, username, email string) (*domain.User, error) {
	u, err := s.Me(ctx, username)
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		u.Email = nil
	} else {
		if cur, ok := u.ContactAddress(); !ok || cur != email {
			taken, err := s.users.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if taken {
				return nil, conflictf("email already exists")
			}
		}
		u.Email = &email
	}
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("email already exists")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *UserService) ChangePassword(ctx context.Context, username, current, next string) error {
	u, err := s.Me(ctx, username)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(current, u.PasswordHash) {
		return validationf("current password is incorrect")
	}
	if strings.TrimSpace(next) == "" {
		return validationf("new password is required")
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, offset, limit)
}
