package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skillquest/internal/config"
	"skillquest/internal/domain"
	"skillquest/internal/dto"
	"skillquest/internal/logger"
	"skillquest/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	minPasswordLength = 8
)

var ErrInvalidJWTToken = errors.New("invalid jwt token")

// AuthService defines the interface for authentication operations.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken string, refreshToken string, user *domain.User, err error)
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, newRefreshToken string, err error)
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
	CreateJWT(ctx context.Context, user *domain.User, ttl time.Duration, tokenType string) (string, error)
}

type authServiceImpl struct {
	userRepo  domain.UserRepository
	appConfig *config.Config
	clock     domain.Clock
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(userRepo domain.UserRepository, appConfig *config.Config, clock domain.Clock) (AuthService, error) {
	if len(appConfig.JWT.SecretKey) < 32 {
		return nil, errors.New("jwt secret key must be at least 32 bytes long")
	}
	return &authServiceImpl{
		userRepo:  userRepo,
		appConfig: appConfig,
		clock:     clock,
	}, nil
}

// Register creates a new account. Self-registration only grants the student
// and teacher roles; admins are provisioned out of band.
func (s *authServiceImpl) Register(ctx context.Context, req dto.RegisterRequest) (*domain.User, error) {
	appLogger := logger.Get()

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewInvalidInputError("a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleStudent && role != domain.RoleTeacher {
		return nil, domain.NewInvalidInputError("role must be student or teacher")
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.NewConflictError(fmt.Sprintf("user with email %s already exists", email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.NewUser(email, string(hash), strings.TrimSpace(req.Name), role, s.clock.Now())
	user.ID = util.NewULID()
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	appLogger.Info("New user registered",
		zap.String("userID", user.ID),
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))
	return user, nil
}

// Login verifies the password and issues a token pair. Unknown email and
// wrong password return the same error so the endpoint does not leak which
// accounts exist.
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	appLogger := logger.Get()

	user, err := s.userRepo.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if user == nil {
		return "", "", nil, domain.NewError(domain.CodeUnauthorized, "invalid email or password", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		appLogger.Warn("Password mismatch on login", zap.String("userID", user.ID))
		return "", "", nil, domain.NewError(domain.CodeUnauthorized, "invalid email or password", nil)
	}

	accessToken, err := s.CreateJWT(ctx, user, s.appConfig.JWT.AccessTokenTTL, tokenTypeAccess)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := s.CreateJWT(ctx, user, s.appConfig.JWT.RefreshTokenTTL, tokenTypeRefresh)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	appLogger.Info("User logged in", zap.String("userID", user.ID))
	return accessToken, refreshToken, user, nil
}

func (s *authServiceImpl) CreateJWT(ctx context.Context, user *domain.User, ttl time.Duration, tokenType string) (string, error) {
	now := s.clock.Now()
	claims := dto.AuthClaims{
		UserID:    user.ID,
		Role:      string(user.Role),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.appConfig.JWT.SecretKey))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (s *authServiceImpl) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	appLogger := logger.Get()
	token, err := jwt.ParseWithClaims(tokenString, &dto.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.appConfig.JWT.SecretKey), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			appLogger.Warn("JWT token expired",
				zap.Error(err),
				zap.String("token_snippet", tokenString[:min(len(tokenString), 20)]+"..."))
		} else {
			appLogger.Warn("JWT validation failed",
				zap.Error(err),
				zap.String("token_snippet", tokenString[:min(len(tokenString), 20)]+"..."))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	if claims, ok := token.Claims.(*dto.AuthClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidJWTToken
}

func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	appLogger := logger.Get()
	claims, err := s.ValidateJWT(ctx, refreshTokenString)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.TokenType != tokenTypeRefresh {
		return "", "", errors.New("not a refresh token")
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil || user == nil {
		appLogger.Error("User not found for refresh token", zap.String("userID", claims.UserID), zap.Error(err))
		return "", "", domain.NewNotFoundError(fmt.Sprintf("user %s not found for refresh token", claims.UserID))
	}

	newAccessToken, err := s.CreateJWT(ctx, user, s.appConfig.JWT.AccessTokenTTL, tokenTypeAccess)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new access token: %w", err)
	}
	newRefreshToken, err := s.CreateJWT(ctx, user, s.appConfig.JWT.RefreshTokenTTL, tokenTypeRefresh)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new refresh token: %w", err)
	}

	appLogger.Info("JWT token refreshed", zap.String("userID", user.ID))
	return newAccessToken, newRefreshToken, nil
}
