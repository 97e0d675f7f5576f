package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bms_bridge/internal/config"
	"bms_bridge/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = time.Hour
	tokenIssuer       = "bms-bridge"
	maxUsernameLength = 64
)

var (
	ErrInvalidUsername  = errors.New("username must be 1-64 characters")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrOperatorNotFound = errors.New("operator not found")
	ErrInvalidToken     = errors.New("invalid token")
)

// AuthService registers operators and issues the bearer tokens that guard
// the control API.
type AuthService struct {
	operators  repository.OperatorRepo
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(repo repository.OperatorRepo, cfg config.AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		operators:  repo,
		signingKey: []byte(cfg.SigningKey),
		tokenTTL:   ttl,
		now:        time.Now,
	}
}

// Claims carry the operator id; Subject holds the same id as text.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID int `json:"operator_id"`
}

func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(password) == "" {
		return 0, fmt.Errorf("%w: password is empty", ErrInvalidPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.operators.Create(ctx, username, string(hash))
}

// GenerateToken checks the operator's credentials and signs a token.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return "", ErrOperatorNotFound
	}
	op, err := s.operators.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if op == nil {
		return "", ErrOperatorNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	return s.issueToken(op.ID)
}

// ParseToken accepts only unexpired HS256 tokens issued by this bridge.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(accessToken, claims,
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.OperatorID <= 0 || claims.Subject != strconv.Itoa(claims.OperatorID) {
		return 0, ErrInvalidToken
	}
	return claims.OperatorID, nil
}

func (s *AuthService) issueToken(operatorID int) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(operatorID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: operatorID,
	})
	return token.SignedString(s.signingKey)
}

func normalizeUsername(u string) (string, error) {
	u = strings.TrimSpace(u)
	if u == "" || len(u) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	return u, nil
}
