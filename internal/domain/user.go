package domain

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User statuses.
const (
	UserActive   = "ACTIVE"
	UserInactive = "INACTIVE"
)

// Address is a structured postal address.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// User is a back-office account holder. BillingCustomerID is set once the
// first billing operation creates a provider customer for the user.
type User struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Email             string    `json:"email"`
	Password          string    `json:"-"` // bcrypt hash, never serialized
	MobileNumber      string    `json:"mobileNumber,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	DateOfBirth       string    `json:"dateOfBirth,omitempty"`
	Address           *Address  `json:"address,omitempty"`
	Role              string    `json:"role"`
	ContractDate      string    `json:"contractDate,omitempty"`
	Status            string    `json:"status"`
	BillingCustomerID *string   `json:"billingCustomerId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DisplayName is the full name used as the signer name on envelopes.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// UserSnapshot is the owner summary embedded in contract listings.
type UserSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUserID generates a new unique user ID.
func NewUserID() string {
	return uuid.New().String()
}

// CreateUserRequest is the validated input for creating a user.
type CreateUserRequest struct {
	FirstName    string   `json:"firstName" validate:"required,min=1,max=100"`
	LastName     string   `json:"lastName" validate:"required,min=1,max=100"`
	Email        string   `json:"email" validate:"required,email"`
	MobileNumber string   `json:"mobileNumber" validate:"omitempty,min=7,max=20"`
	Gender       string   `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	DateOfBirth  string   `json:"dateOfBirth"`
	Address      *Address `json:"address,omitempty"`
	Role         string   `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	ContractDate string   `json:"contractDate"`
}

// UpdateUserRequest is the validated input for updating a user profile.
type UpdateUserRequest struct {
	FirstName    string   `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName     string   `json:"lastName" validate:"omitempty,min=1,max=100"`
	MobileNumber string   `json:"mobileNumber" validate:"omitempty,min=7,max=20"`
	Gender       string   `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	DateOfBirth  string   `json:"dateOfBirth"`
	Address      *Address `json:"address,omitempty"`
	ContractDate string   `json:"contractDate"`
}

// LoginRequest is the login input.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginUser is the user summary returned on login.
type LoginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse is the login output.
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// JWTClaims are the claims extracted from a verified access token.
type JWTClaims struct {
	Sub   string
	Email string
	Role  string
}

// ResetPasswordRequest carries a verified reset token and the new password.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}
