package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrDevAuthClosed = errors.New("dev auth disabled")
)

const devTTL = 30 * 24 * time.Hour

// Service выдаёт и проверяет JWT
type Service struct {
	config *config.Config
	now    func() time.Time
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		now:    time.Now,
	}
}

// SignInDev: dev-авторизация, выдает JWT на 30 дней
func (s *Service) SignInDev(ctx context.Context, userID string) (*DevAuthResponse, error) {
	_ = ctx

	if s.config.AuthMode != config.AuthModeDev {
		return nil, ErrDevAuthClosed
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = "dev-user"
	}

	accessToken, err := s.GenerateJWT(userID, devTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dev JWT: %w", err)
	}

	return &DevAuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(devTTL.Seconds()),
		UserID:      userID,
	}, nil
}

// GenerateJWT signs an HS256 token for userID. ttl <= 0 uses JWT_TTL_MINUTES.
func (s *Service) GenerateJWT(userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Duration(s.config.JWTTTLMinutes) * time.Minute
	}
	now := s.now()

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": s.config.JWTIssuer,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyJWT: проверка JWT токена, возвращает sub
func (s *Service) VerifyJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithIssuer(s.config.JWTIssuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		return "", ErrInvalidToken
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return "", ErrInvalidToken
		}
		return sub, nil
	}

	return "", ErrInvalidToken
}
