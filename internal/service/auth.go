package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/repository"
	"github.com/contractdesk/backend/pkg/notify"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Admin-created accounts start with this password; users are expected to
// reset it through the email flow.
const defaultUserPassword = "User@123"

const resetTokenLifetime = 30 * time.Minute

// AuthService handles authentication, JWT, and user management.
type AuthService struct {
	jwtSecret     string
	adminEmail    string
	adminPassword string
	users         UserStore
	dispatcher    notify.Dispatcher
	validate      *validator.Validate
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret, adminEmail, adminPassword string, users UserStore, dispatcher notify.Dispatcher) *AuthService {
	return &AuthService{
		jwtSecret:     jwtSecret,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		users:         users,
		dispatcher:    dispatcher,
		validate:      validator.New(),
	}
}

// SeedAdmin creates the default admin user if it doesn't exist.
func (s *AuthService) SeedAdmin(ctx context.Context) error {
	exists, err := s.users.Exists(ctx, s.adminEmail)
	if err != nil {
		return fmt.Errorf("failed to check admin existence: %w", err)
	}
	if exists {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(s.adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	admin := &domain.User{
		ID:        domain.NewUserID(),
		FirstName: "Admin",
		LastName:  "Admin",
		Email:     s.adminEmail,
		Password:  string(hashedPassword),
		Role:      domain.RoleAdmin,
		Status:    domain.UserActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Printf("admin user created (%s)", s.adminEmail)
	return nil
}

// Login validates credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"exp":   time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, domain.ErrInternal("failed to sign token", err)
	}

	return &domain.LoginResponse{
		Token: signed,
		User: domain.LoginUser{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

// VerifyToken validates an access token and returns the claims.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.JWTClaims, error) {
	claims, err := s.parseHS256(tokenStr)
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid or expired token")
	}

	return &domain.JWTClaims{
		Sub:   getClaimString(claims, "sub"),
		Email: getClaimString(claims, "email"),
		Role:  getClaimString(claims, "role"),
	}, nil
}

// SendResetPasswordEmail issues a short-lived reset token and dispatches it to
// the user's email through the notification relay. Always succeeds from the
// caller's perspective when the email is unknown, to avoid account probing.
func (s *AuthService) SendResetPasswordEmail(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil
	}

	claims := jwt.MapClaims{
		"sub":     user.ID,
		"purpose": "password_reset",
		"exp":     time.Now().Add(resetTokenLifetime).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return domain.ErrInternal("failed to sign reset token", err)
	}

	// Fire-and-forget: the request context dies with the response.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.dispatcher.Send(ctx, notify.Message{
			Recipient: user.Email,
			Template:  "password-reset",
			Context:   map[string]string{"token": signed},
		}); err != nil {
			log.Printf("failed to send reset email to %s: %v", user.Email, err)
		}
	}()
	return nil
}

// VerifyResetToken checks a reset token and returns the user it belongs to.
func (s *AuthService) VerifyResetToken(ctx context.Context, tokenStr string) (*domain.User, error) {
	claims, err := s.parseHS256(tokenStr)
	if err != nil || getClaimString(claims, "purpose") != "password_reset" {
		return nil, domain.ErrUnauthorized("invalid or expired reset token")
	}

	user, err := s.users.FindByID(ctx, getClaimString(claims, "sub"))
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	return user, nil
}

// ResetPassword verifies the reset token and stores the new password hash.
func (s *AuthService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return domain.ErrValidation(err.Error())
	}

	user, err := s.VerifyResetToken(ctx, req.Token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.ErrInternal("failed to hash password", err)
	}

	if err := s.users.SetPassword(ctx, user.ID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound("user not found")
		}
		return domain.ErrInternal("failed to set password", err)
	}
	return nil
}

func (s *AuthService) parseHS256(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// ListUsers returns non-admin users, optionally filtered by a user-id
// substring pattern.
func (s *AuthService) ListUsers(ctx context.Context, idPattern string) ([]*domain.User, error) {
	users, err := s.users.List(ctx, idPattern)
	if err != nil {
		return nil, domain.ErrInternal("failed to list users", err)
	}
	return users, nil
}

// CreateUser creates a new account with the default password policy.
func (s *AuthService) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	exists, err := s.users.Exists(ctx, req.Email)
	if err != nil {
		return nil, domain.ErrInternal("failed to check user", err)
	}
	if exists {
		return nil, domain.ErrBadRequest("user already exists with provided email")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(defaultUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("failed to hash password", err)
	}

	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}

	now := time.Now()
	user := &domain.User{
		ID:           domain.NewUserID(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     string(hashedPassword),
		MobileNumber: req.MobileNumber,
		Gender:       req.Gender,
		DateOfBirth:  req.DateOfBirth,
		Address:      req.Address,
		Role:         role,
		ContractDate: req.ContractDate,
		Status:       domain.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.ErrInternal("failed to create user", err)
	}
	return user, nil
}

// UpdateUser updates the profile fields of an existing user.
func (s *AuthService) UpdateUser(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.MobileNumber != "" {
		user.MobileNumber = req.MobileNumber
	}
	if req.Gender != "" {
		user.Gender = req.Gender
	}
	if req.DateOfBirth != "" {
		user.DateOfBirth = req.DateOfBirth
	}
	if req.Address != nil {
		user.Address = req.Address
	}
	if req.ContractDate != "" {
		user.ContractDate = req.ContractDate
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound("user not found")
		}
		return nil, domain.ErrInternal("failed to update user", err)
	}
	return user, nil
}

// UpdateUserStatus sets the account status.
func (s *AuthService) UpdateUserStatus(ctx context.Context, id, status string) error {
	if status != domain.UserActive && status != domain.UserInactive {
		return domain.ErrValidation("status must be ACTIVE or INACTIVE")
	}

	if err := s.users.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound("user not found")
		}
		return domain.ErrInternal("failed to update user status", err)
	}
	return nil
}

// DeleteUser removes a user by ID.
func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return domain.ErrNotFound("user not found")
	}
	if user.Role == domain.RoleAdmin {
		return domain.ErrBadRequest("cannot delete admin user")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return domain.ErrInternal("failed to delete user", err)
	}
	return nil
}

// GetUserByID returns a user profile by ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	return user, nil
}
