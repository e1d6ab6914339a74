package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/auth"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSuspended          = errors.New("account is suspended")
	ErrUsernameTaken      = errors.New("username already taken")
)

const accessTokenTTL = 24 * time.Hour

// Events 账号事件回调（通知分发器实现，尽力而为）。
type Events interface {
	NewSignup(ctx context.Context, userID string)
	AccountSuspended(ctx context.Context, userID, reason string)
}

// Service 账号注册、登录与封禁。
type Service struct {
	repo    *Repo
	authCfg config.AuthConfig
	events  Events
	log     logger.Logger
}

func NewService(repo *Repo, authCfg config.AuthConfig, events Events, log logger.Logger) *Service {
	return &Service{repo: repo, authCfg: authCfg, events: events, log: log}
}

type RegisterInput struct {
	Username string
	Password string
	FullName string
	Phone    string
	Email    string
	Role     string // 默认 customer
}

func (in *RegisterInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return fmt.Errorf("username is required")
	}
	if len(in.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	switch in.Role {
	case "":
		in.Role = RoleCustomer
	case RoleCustomer, RoleCourier:
	default:
		return fmt.Errorf("unknown role %q", in.Role)
	}
	return nil
}

// Register 注册新账号。管理员账号不开放注册，只能预置。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: hash,
		PasswordSalt: salt,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Email:        in.Email,
		Roles:        in.Role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.events != nil {
		s.events.NewSignup(ctx, u.ID)
	}
	if s.log != nil {
		s.log.Infof("user registered: id=%s role=%s", u.ID, in.Role)
	}
	return u, nil
}

// LoginResult 登录结果，token 放进 Authorization: Bearer 头。
type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Login 校验口令并签发访问令牌。被封禁的账号直接拒绝。
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if u.Suspended {
		return nil, ErrSuspended
	}

	token, expiresAt, err := auth.GenerateAccessToken(s.authCfg, u.ID, u.RolesSlice(), accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

// Suspend 封禁或解封账号（管理员操作）。封禁后该账号无法再登录。
func (s *Service) Suspend(ctx context.Context, id string, suspended bool, reason string) error {
	if err := s.repo.SetSuspended(ctx, id, suspended, time.Now()); err != nil {
		return err
	}
	if suspended && s.events != nil {
		s.events.AccountSuspended(ctx, id, reason)
	}
	if s.log != nil {
		s.log.Infof("user %s suspended=%v", id, suspended)
	}
	return nil
}
