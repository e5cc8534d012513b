// Package user provides user value types and pure validation functions.
// This package has NO dependencies on I/O or external packages.
package user

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Role grants a set of permissions.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status is the account state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	Status       Status    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin returns true for administrators.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive returns true if the account may sign in.
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// Command carries the writable user fields. Nil fields are left unchanged on update.
type Command struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
	Role     *Role   `json:"role"`
	Status   *Status `json:"status"`
}

// ValidationResult represents the outcome of command validation.
type ValidationResult struct {
	Valid  bool
	Errors map[string]string // field -> error message
}

// ValidateCreate validates a create command (pure function).
func ValidateCreate(cmd Command) ValidationResult {
	errors := make(map[string]string)

	if cmd.Email == nil || strings.TrimSpace(*cmd.Email) == "" {
		errors["email"] = "Email is required"
	} else if !isValidEmail(*cmd.Email) {
		errors["email"] = "Invalid email format"
	}

	if cmd.Name == nil || strings.TrimSpace(*cmd.Name) == "" {
		errors["name"] = "Name is required"
	} else if msg := checkName(*cmd.Name); msg != "" {
		errors["name"] = msg
	}

	if cmd.Password == nil || *cmd.Password == "" {
		errors["password"] = "Password is required"
	} else if msg := checkPassword(*cmd.Password); msg != "" {
		errors["password"] = msg
	}

	validateEnums(cmd, errors)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

// ValidateUpdate validates a partial update command (pure function).
// Only present fields are checked; an empty command is rejected.
func ValidateUpdate(cmd Command) ValidationResult {
	errors := make(map[string]string)

	if cmd.Email == nil && cmd.Name == nil && cmd.Password == nil && cmd.Role == nil && cmd.Status == nil {
		errors["body"] = "At least one field is required"
	}

	if cmd.Email != nil && !isValidEmail(*cmd.Email) {
		errors["email"] = "Invalid email format"
	}
	if cmd.Name != nil {
		if strings.TrimSpace(*cmd.Name) == "" {
			errors["name"] = "Name is required"
		} else if msg := checkName(*cmd.Name); msg != "" {
			errors["name"] = msg
		}
	}
	if cmd.Password != nil {
		if msg := checkPassword(*cmd.Password); msg != "" {
			errors["password"] = msg
		}
	}

	validateEnums(cmd, errors)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

// New builds a user from a validated create command. The password hash is set
// by the caller.
func New(cmd Command, now time.Time) User {
	u := User{
		Role:      RoleUser,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return Apply(u, cmd, now)
}

// Apply returns u with the present command fields applied (pure function).
func Apply(u User, cmd Command, now time.Time) User {
	if cmd.Email != nil {
		u.Email = NormalizeEmail(*cmd.Email)
	}
	if cmd.Name != nil {
		u.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Role != nil {
		u.Role = *cmd.Role
	}
	if cmd.Status != nil {
		u.Status = *cmd.Status
	}
	u.UpdatedAt = now
	return u
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginRequest represents a login request (value type).
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateLogin validates a login request (pure function).
func ValidateLogin(req LoginRequest) ValidationResult {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Email) == "" {
		errors["email"] = "Email is required"
	}
	if req.Password == "" {
		errors["password"] = "Password is required"
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

// Helper functions (pure)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

func checkName(name string) string {
	n := len([]rune(strings.TrimSpace(name)))
	switch {
	case n < 2:
		return "Name must be at least 2 characters"
	case n > 100:
		return "Name must be less than 100 characters"
	}
	return ""
}

func checkPassword(password string) string {
	if len(password) < 8 {
		return "Password must be at least 8 characters"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return "Password must contain uppercase, lowercase, and number"
	}
	return ""
}

func validateEnums(cmd Command, errors map[string]string) {
	if cmd.Role != nil && !cmd.Role.Valid() {
		errors["role"] = "Role must be one of: user, admin"
	}
	if cmd.Status != nil && !cmd.Status.Valid() {
		errors["status"] = "Status must be one of: active, suspended"
	}
}
