package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Provider error codes this client reacts to.
const (
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeInvalidCredentials = "INVALID_LOGIN_CREDENTIALS"
	CodeEmailNotFound      = "EMAIL_NOT_FOUND"
	CodeUserDisabled       = "USER_DISABLED"
	CodeRecentLogin        = "CREDENTIAL_TOO_OLD_LOGIN_AGAIN"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidRefresh     = "INVALID_REFRESH_TOKEN"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS_TRY_LATER"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidEmail       = "INVALID_EMAIL"
)

// ErrNotSignedIn is returned when an operation needs a signed-in user.
var ErrNotSignedIn = errors.New("identity: not signed in")

// Error is a failure reported by the identity provider.
type Error struct {
	Op         string
	StatusCode int
	// Code is the provider's machine-readable reason, e.g. INVALID_PASSWORD.
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%d)", e.Op, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.StatusCode)
}

// HasCode reports whether err is an identity Error with the given code.
func HasCode(err error, code string) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Code == code
}

// ValidationError is a locally rejected registration or password change.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// errorCode extracts the leading code from provider messages such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func errorCode(message string) string {
	code, _, _ := strings.Cut(message, ":")
	return strings.TrimSpace(code)
}

// SignInMessage turns a sign-in or sign-up failure into text for the login
// form.
func SignInMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case HasCode(err, CodeEmailExists):
		return "An account with this email already exists."
	case HasCode(err, CodeInvalidEmail):
		return "Enter a valid email address."
	case HasCode(err, CodeWeakPassword):
		return "Password is too weak. Please choose a stronger password."
	case HasCode(err, CodeInvalidPassword), HasCode(err, CodeInvalidCredentials), HasCode(err, CodeEmailNotFound):
		return "Invalid email or password."
	case HasCode(err, CodeUserDisabled):
		return "This account has been disabled."
	case HasCode(err, CodeTooManyAttempts):
		return "Too many attempts. Please try again later."
	default:
		return "Failed to sign in. Please try again."
	}
}

// PasswordChangeMessage turns a ChangePassword failure into text for the
// profile form.
func PasswordChangeMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "Password updated successfully!"
	case errors.As(err, &ve):
		return ve.Message
	case HasCode(err, CodeInvalidPassword), HasCode(err, CodeInvalidCredentials):
		return "Current password is incorrect."
	case HasCode(err, CodeRecentLogin), HasCode(err, CodeTokenExpired):
		return "Please log out and log in again to update your password."
	case HasCode(err, CodeWeakPassword):
		return "Password is too weak. Please choose a stronger password."
	default:
		return "Failed to update password. Please try again."
	}
}
