package handlers

import (
	"regexp"
	"unicode"

	"github.com/unbrain/admin-apiserver/types"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailRe.MatchString(email)
}

// validPassword enforces the account-creation policy: at least 8 characters
// with one uppercase letter, one lowercase letter, and one digit.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func validateLogin(req LoginRequest) []FieldError {
	var errs []FieldError
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Please provide a valid email"})
	}
	if len(req.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 8 characters long"})
	}
	return errs
}

func validateCreateUser(req CreateUserRequest) []FieldError {
	var errs []FieldError
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Please provide a valid email address"})
	}
	if !validPassword(req.Password) {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 8 characters with one uppercase, one lowercase and one number"})
	}
	if req.Role != "" && !types.IsAssignableRole(req.Role) {
		errs = append(errs, FieldError{Field: "role", Message: "Role must be either moderator or admin"})
	}
	return errs
}

func validateUpdateUser(req UpdateUserRequest) []FieldError {
	var errs []FieldError
	if req.Email == nil && req.IsActive == nil && req.Role == nil {
		errs = append(errs, FieldError{Field: "body", Message: "At least one field must be provided for update"})
		return errs
	}
	if req.Email != nil && !validEmail(*req.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Please provide a valid email address"})
	}
	if req.Role != nil && !types.IsAssignableRole(*req.Role) {
		errs = append(errs, FieldError{Field: "role", Message: "Role must be either moderator or admin"})
	}
	return errs
}
