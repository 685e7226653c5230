package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// TokenType distinguishes token audiences.
type TokenType string

const TokenTypeAdmin TokenType = "admin"

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType       `json:"token_type"`
	UserID      int             `json:"user_id"`
	Role        model.AdminRole `json:"role"`
	Permissions []string        `json:"permissions,omitempty"`
}

// AuthService handles admin authentication and JWT issuance.
type AuthService struct {
	cfg    *config.Config
	admins AdminStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, admins AdminStore) *AuthService {
	return &AuthService{cfg: cfg, admins: admins}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies admin credentials and issues a token carrying the role's permissions.
func (s *AuthService) Login(ctx context.Context, req model.AdminLoginRequest) (*model.AdminLoginResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr("get admin", err)
	}
	if err := s.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	perms := model.PermissionCodes(admin.Role)
	token, err := s.GenerateAdminToken(admin.ID, admin.Role, perms)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &model.AdminLoginResponse{Token: token, Admin: *admin, Permissions: perms}, nil
}

// GenerateAdminToken creates a JWT for an admin with permissions embedded.
func (s *AuthService) GenerateAdminToken(adminID int, role model.AdminRole, permissions []string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(adminID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeAdmin,
		UserID:      adminID,
		Role:        role,
		Permissions: permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
