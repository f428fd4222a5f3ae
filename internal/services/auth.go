package services

import (
	"strings"
	"time"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginInput is the payload for authentication.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService handles account registration and bearer token issuance.
type AuthService struct {
	db     *gorm.DB
	secret string
	expiry time.Duration
}

// NewAuthService creates an AuthService signing HS256 tokens with secret.
func NewAuthService(db *gorm.DB, secret string, expiry time.Duration) *AuthService {
	return &AuthService{db: db, secret: secret, expiry: expiry}
}

// Register creates an account with a bcrypt-hashed password.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, types.ErrValidation("a valid email is required", nil)
	}
	if len(input.Password) < 8 {
		return nil, types.ErrValidation("password must be at least 8 characters", nil)
	}

	var existing models.User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, types.ErrConflict("email already registered")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  input.DisplayName,
		Role:         models.RoleUser,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// Login verifies credentials and returns a signed bearer token. The error
// is identical for unknown email and wrong password.
func (s *AuthService) Login(input LoginInput) (string, *models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, types.ErrUnauthorized("Invalid credentials")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return "", nil, types.ErrUnauthorized("Invalid credentials")
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// GetUser loads a user by id.
func (s *AuthService) GetUser(userID string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound("User not found")
		}
		return nil, err
	}
	return &user, nil
}

// issueToken signs an HS256 token with the user id as subject.
func (s *AuthService) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}
