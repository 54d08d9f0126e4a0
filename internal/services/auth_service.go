package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"valuedrive/internal/models"
	"valuedrive/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

// AuthOptions tunes an AuthService.
type AuthOptions struct {
	JWTSecret    string
	TokenTTL     time.Duration
	ResetURLBase string
	ResetTTL     time.Duration
}

// AuthService handles business logic for authentication and password resets.
type AuthService struct {
	userRepo   repositories.UserRepository
	mailer     Mailer
	jwtSecret  []byte
	tokenDurat time.Duration
	resetBase  string
	resetTTL   time.Duration
	validate   *validator.Validate
	log        *zap.SugaredLogger
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, mailer Mailer, opts AuthOptions, log *zap.SugaredLogger) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AuthService{
		userRepo:   userRepo,
		mailer:     mailer,
		jwtSecret:  []byte(opts.JWTSecret),
		tokenDurat: opts.TokenTTL,
		resetBase:  strings.TrimRight(opts.ResetURLBase, "/"),
		resetTTL:   opts.ResetTTL,
		validate:   NewValidator(),
		log:        log,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	user := &models.User{Name: strings.TrimSpace(name), Email: normalizeEmail(email), Password: password}
	if err := s.validate.Struct(user); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.userRepo.GetByEmail(ctx, user.Email); err == nil {
		return nil, fmt.Errorf("email %s: %w", user.Email, ErrDuplicate)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// Login checks the credentials and returns a signed JWT. Unknown emails and
// wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(s.tokenDurat).Unix(),
		"iat":     now.Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, user, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// ForgotPassword issues a one hour reset token and mails the reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return mapRepoError(err)
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.resetTTL)
	user.ResetPasswordToken = token
	user.ResetPasswordExpires = &expires
	if err := s.userRepo.Update(ctx, user); err != nil {
		return mapRepoError(err)
	}

	link := s.resetBase + "/" + token
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, link); err != nil {
		s.log.Errorw("failed to send password reset email", "user", user.ID, "error", err)
		return fmt.Errorf("send reset email: %v: %w", err, ErrExternal)
	}
	return nil
}

// ResetPassword replaces the password of the user holding an unexpired token
// and consumes the token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if err := s.validate.Var(password, "required,min=6"); err != nil {
		return newValidationError("password", "must be at least 6 characters")
	}
	user, err := s.userRepo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if user.ResetPasswordExpires == nil || !user.ResetPasswordExpires.After(s.now()) {
		return ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	user.ResetPasswordToken = ""
	user.ResetPasswordExpires = nil
	return mapRepoError(s.userRepo.Update(ctx, user))
}

func newResetToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
