package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rpx-gg/tournament-service/models"
	"github.com/rpx-gg/tournament-service/repositories"
	"github.com/rpx-gg/tournament-service/utils"
)

var (
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAuthNicknameTaken      = errors.New("nickname is already taken")
	ErrAuthWeakPassword       = errors.New("password must be at least 8 characters")
	ErrAuthInvalidEmail       = errors.New("invalid email format")
)

const tokenTTL = 24 * time.Hour

type RegisterInput struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// Роль organizer разрешена при регистрации, admin назначается вручную.
	Role models.UserRole `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, input LoginInput) (*models.User, string, error)
}

type authService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
}

func NewAuthService(userRepo repositories.UserRepository, jwtSecret string) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	nickname := strings.TrimSpace(input.Nickname)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if nickname == "" {
		return nil, "", fmt.Errorf("%w: nickname is required", ErrValidationFailed)
	}
	if !utils.IsValidEmail(email) {
		return nil, "", ErrAuthInvalidEmail
	}
	if len(input.Password) < 8 {
		return nil, "", ErrAuthWeakPassword
	}

	role := input.Role
	switch role {
	case "":
		role = models.RolePlayer
	case models.RolePlayer, models.RoleOrganizer:
	default:
		return nil, "", fmt.Errorf("%w: role %q is not allowed at registration", ErrValidationFailed, role)
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Nickname:     nickname,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, "", ErrAuthEmailTaken
		case errors.Is(err, repositories.ErrUserNicknameConflict):
			return nil, "", ErrAuthNicknameTaken
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, "", ErrAuthInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}

	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, "", ErrAuthInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *authService) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
