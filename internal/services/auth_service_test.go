package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"valuedrive/internal/models"
	"valuedrive/internal/repositories"
	"valuedrive/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return m.user(m.Called(ctx, token))
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockMailer is a mock implementation of services.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	args := m.Called(ctx, to, name, link)
	return args.Error(0)
}

func notFound(what string) error {
	return fmt.Errorf("user with %s: %w", what, repositories.ErrNotFound)
}

func newAuthService(repo *MockUserRepository, mailer *MockMailer) *services.AuthService {
	return services.NewAuthService(repo, mailer, services.AuthOptions{
		JWTSecret:    testJWTSecret,
		ResetURLBase: "http://localhost:3000/reset-password/",
	}, nil)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, nil)

	// Test successful registration
	mockRepo.On("GetByEmail", ctx, "test@example.com").Return(nil, notFound("email")).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, err := authService.Register(ctx, "Test User", " Test@Example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByEmail", ctx, "test@example.com").Return(&models.User{ID: "1"}, nil).Once()
	_, err = authService.Register(ctx, "Test User", "test@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrDuplicate)
	mockRepo.AssertExpectations(t)

	// Test validation: the repository is never reached
	_, err = authService.Register(ctx, "T", "not-an-email", "123")
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, nil)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Name:     "Test User",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}

	// Test successful login
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	token, got, err := authService.Login(ctx, "test@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, got.ID)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Email, claims["email"])
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	_, _, err = authService.Login(ctx, "test@example.com", "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, notFound("email")).Once()
	_, _, err = authService.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Store failures are not reported as bad credentials
	mockRepo.On("GetByEmail", ctx, "down@example.com").Return(nil, errors.New("connection refused")).Once()
	_, _, err = authService.Login(ctx, "down@example.com", "password123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := newAuthService(new(MockUserRepository), nil)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	mailer := new(MockMailer)
	authService := newAuthService(mockRepo, mailer)

	user := &models.User{ID: "user-123", Name: "Test User", Email: "test@example.com"}
	var issued string
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
		issued = u.ResetPasswordToken
		return len(u.ResetPasswordToken) == 40 &&
			u.ResetPasswordExpires != nil &&
			time.Until(*u.ResetPasswordExpires) > 59*time.Minute
	})).Return(nil).Once()
	mailer.On("SendPasswordReset", ctx, user.Email, user.Name, mock.MatchedBy(func(link string) bool {
		return strings.HasPrefix(link, "http://localhost:3000/reset-password/") &&
			strings.TrimPrefix(link, "http://localhost:3000/reset-password/") == issued
	})).Return(nil).Once()

	require.NoError(t, authService.ForgotPassword(ctx, "Test@example.com"))
	mockRepo.AssertExpectations(t)
	mailer.AssertExpectations(t)

	// Unknown email
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, notFound("email")).Once()
	assert.ErrorIs(t, authService.ForgotPassword(ctx, "nobody@example.com"), services.ErrNotFound)

	// Mail delivery failure
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	mockRepo.On("Update", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()
	mailer.On("SendPasswordReset", ctx, user.Email, user.Name, mock.AnythingOfType("string")).Return(errors.New("smtp down")).Once()
	assert.ErrorIs(t, authService.ForgotPassword(ctx, user.Email), services.ErrExternal)
	mockRepo.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestAuthService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, nil)

	future := time.Now().Add(30 * time.Minute)
	past := time.Now().Add(-time.Minute)

	// Valid token
	user := &models.User{ID: "user-123", Email: "test@example.com", ResetPasswordToken: "tok", ResetPasswordExpires: &future}
	mockRepo.On("GetByResetToken", ctx, "tok").Return(user, nil).Once()
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.ResetPasswordToken == "" && u.ResetPasswordExpires == nil &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("newsecret")) == nil
	})).Return(nil).Once()
	require.NoError(t, authService.ResetPassword(ctx, "tok", "newsecret"))
	mockRepo.AssertExpectations(t)

	// Expired token
	expired := &models.User{ID: "user-123", ResetPasswordToken: "old", ResetPasswordExpires: &past}
	mockRepo.On("GetByResetToken", ctx, "old").Return(expired, nil).Once()
	assert.ErrorIs(t, authService.ResetPassword(ctx, "old", "newsecret"), services.ErrInvalidResetToken)

	// Unknown token
	mockRepo.On("GetByResetToken", ctx, "nope").Return(nil, notFound("reset token")).Once()
	assert.ErrorIs(t, authService.ResetPassword(ctx, "nope", "newsecret"), services.ErrInvalidResetToken)

	// Short password is rejected before any lookup
	assert.ErrorIs(t, authService.ResetPassword(ctx, "tok", "123"), services.ErrValidation)
	mockRepo.AssertExpectations(t)
}
