package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spice-store/internal/domain"
	"spice-store/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing.
const BcryptCost = 10

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSelfDeactivation   = errors.New("admins cannot deactivate themselves")
	ErrInvalidRole        = errors.New("invalid admin role")
)

// Claims represents the JWT claims carried by access tokens.
type Claims struct {
	AdminID uuid.UUID `json:"admin_id"`
	Role    string    `json:"role"`
	jwt.RegisteredClaims
}

// AdminService owns admin accounts and authentication.
type AdminService interface {
	// Bootstrap registers the very first admin as super-admin. It fails
	// with ErrRegistrationClosed once any admin exists.
	Bootstrap(ctx context.Context, name, email, password, phone string) (*domain.Admin, error)

	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, admin *domain.Admin, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)

	Get(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (*domain.Admin, error)
	ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error

	// Super-admin-only management.
	CreateAdmin(ctx context.Context, name, email, password, role, phone string) (*domain.Admin, error)
	ListAdmins(ctx context.Context) ([]*domain.Admin, error)
	SetAdminActive(ctx context.Context, actorID, targetID uuid.UUID, active bool) error
}

type adminService struct {
	adminRepo        repository.AdminRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtSecret        string
	accessExpiry     time.Duration
	refreshExpiry    time.Duration
}

// NewAdminService creates a new instance of AdminService.
func NewAdminService(
	adminRepo repository.AdminRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	jwtSecret string,
	accessExpiryMinutes, refreshExpiryDays int,
) AdminService {
	return &adminService{
		adminRepo:        adminRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtSecret:        jwtSecret,
		accessExpiry:     time.Duration(accessExpiryMinutes) * time.Minute,
		refreshExpiry:    time.Duration(refreshExpiryDays) * 24 * time.Hour,
	}
}

// Bootstrap creates the first super-admin while no admin exists.
func (s *adminService) Bootstrap(ctx context.Context, name, email, password, phone string) (*domain.Admin, error) {
	admin, err := s.newAdmin(name, email, password, domain.RoleSuperAdmin, phone)
	if err != nil {
		return nil, err
	}

	if err := s.adminRepo.CreateFirst(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrAdminExists) {
			return nil, ErrRegistrationClosed
		}
		return nil, err
	}
	return admin, nil
}

// Login authenticates an admin and issues access and refresh tokens.
func (s *adminService) Login(ctx context.Context, email, password string) (string, string, *domain.Admin, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to find admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return "", "", nil, ErrAccountDisabled
	}

	accessToken, err := s.generateAccessToken(admin)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, admin)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, admin, nil
}

// Logout invalidates a refresh token. An unknown token is treated as
// already logged out.
func (s *adminService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken mints a new access token from a valid refresh token.
func (s *adminService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	admin, err := s.adminRepo.FindByID(ctx, refreshToken.AdminID)
	if err != nil {
		return "", fmt.Errorf("failed to find admin: %w", err)
	}
	if !admin.IsActive {
		return "", ErrAccountDisabled
	}

	return s.generateAccessToken(admin)
}

// ValidateToken parses and validates an access token.
func (s *adminService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *adminService) Get(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	return s.adminRepo.FindByID(ctx, id)
}

// UpdateProfile changes name and phone.
func (s *adminService) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (*domain.Admin, error) {
	if err := s.adminRepo.UpdateProfile(ctx, id, name, phone); err != nil {
		return nil, err
	}
	return s.adminRepo.FindByID(ctx, id)
}

// ChangePassword verifies the current credential before replacing it.
func (s *adminService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	admin, err := s.adminRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.adminRepo.UpdatePassword(ctx, id, string(hash))
}

// CreateAdmin adds an account with an explicit role. Role authorization is
// enforced at the route layer.
func (s *adminService) CreateAdmin(ctx context.Context, name, email, password, role, phone string) (*domain.Admin, error) {
	if !domain.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	admin, err := s.newAdmin(name, email, password, role, phone)
	if err != nil {
		return nil, err
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *adminService) ListAdmins(ctx context.Context) ([]*domain.Admin, error) {
	return s.adminRepo.List(ctx)
}

// SetAdminActive toggles another admin's account. Deactivating yourself is
// blocked so a store cannot lock out its last super-admin.
func (s *adminService) SetAdminActive(ctx context.Context, actorID, targetID uuid.UUID, active bool) error {
	if !active && actorID == targetID {
		return ErrSelfDeactivation
	}
	return s.adminRepo.SetActive(ctx, targetID, active)
}

func (s *adminService) newAdmin(name, email, password, role, phone string) (*domain.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	return &domain.Admin{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *adminService) generateAccessToken(admin *domain.Admin) (string, error) {
	now := time.Now()
	claims := &Claims{
		AdminID: admin.ID,
		Role:    admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *adminService) generateRefreshToken(ctx context.Context, admin *domain.Admin) (string, error) {
	tokenString := uuid.New().String()

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		AdminID:   admin.ID,
		Token:     tokenString,
		ExpiresAt: time.Now().Add(s.refreshExpiry),
		CreatedAt: time.Now(),
		Revoked:   false,
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return "", err
	}
	return tokenString, nil
}
