package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// DefaultTokenTTL is the lifetime of an issued token
const DefaultTokenTTL = 7 * 24 * time.Hour

const (
	msgInvalidCredentials = "이메일 또는 비밀번호가 올바르지 않습니다."
	msgNotAdmin           = "관리자 계정이 아닙니다."
	msgNotClient          = "클라이언트 계정이 아닙니다."
	msgInvalidToken       = "인증이 만료되었거나 유효하지 않습니다. 다시 로그인하세요."
	msgCredentialsMissing = "이메일과 비밀번호를 입력하세요."
)

// TokenClaims is the payload of an issued token
type TokenClaims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *entity.User `json:"user"`
}

// AuthConfig configures token issuing
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// AuthService authenticates users against the users database
type AuthService interface {
	Login(ctx context.Context, email, password string, role entity.Role) (*LoginResult, error)
	VerifyToken(token string) (*TokenClaims, error)
	CurrentUser(ctx context.Context, token string) (*entity.User, error)
}

type authServiceImpl struct {
	users  port.UserGateway
	cfg    AuthConfig
	logger Logger
	now    func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users port.UserGateway, cfg AuthConfig, logger Logger) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	return &authServiceImpl{
		users:  users,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Login checks the credentials and the expected role, then issues a token
func (s *authServiceImpl) Login(ctx context.Context, email, password string, role entity.Role) (*LoginResult, error) {
	const op = "auth.login"

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation(op, "email", msgCredentialsMissing)
	}

	creds, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up user", "error", err, "email", email)
		return nil, err
	}
	if creds == nil || !s.passwordMatches(creds, password) {
		s.logger.Info("Login rejected", "email", email)
		return nil, apperr.Unauthorized(op, msgInvalidCredentials)
	}

	user := creds.User
	if role != "" && user.Role != role {
		s.logger.Info("Login with wrong role", "email", email, "role", user.Role, "expected", role)
		if role == entity.RoleAdmin {
			return nil, apperr.Forbidden(op, msgNotAdmin)
		}
		return nil, apperr.Forbidden(op, msgNotClient)
	}

	token, expiresAt, err := s.issue(user)
	if err != nil {
		return nil, apperr.New(apperr.KindUnknown, op, err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// VerifyToken parses and validates a token
func (s *authServiceImpl) VerifyToken(tokenString string) (*TokenClaims, error) {
	const op = "auth.verify"

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindAuth, Op: op, Message: msgInvalidToken, Err: err}
	}
	if !token.Valid || claims.UserID == "" {
		return nil, &apperr.Error{Kind: apperr.KindAuth, Op: op, Message: msgInvalidToken, Err: errors.New("invalid token")}
	}
	return claims, nil
}

// CurrentUser resolves the user behind a token
func (s *authServiceImpl) CurrentUser(ctx context.Context, tokenString string) (*entity.User, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Error("Failed to load current user", "error", err, "user_id", claims.UserID)
		return nil, err
	}
	if user == nil {
		return nil, apperr.Unauthorized("auth.me", msgInvalidToken)
	}
	return user, nil
}

func (s *authServiceImpl) issue(user *entity.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.TokenTTL)

	claims := &TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// passwordMatches accepts bcrypt hashes and, for older rows, plain secrets.
func (s *authServiceImpl) passwordMatches(creds *entity.UserCredentials, password string) bool {
	if strings.HasPrefix(creds.Secret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(creds.Secret), []byte(password)) == nil
	}
	if creds.Secret == "" {
		return false
	}
	s.logger.Warn("User password is stored in plain text", "user_id", creds.User.ID)
	return subtle.ConstantTimeCompare([]byte(creds.Secret), []byte(password)) == 1
}
