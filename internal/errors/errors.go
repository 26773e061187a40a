package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Family Graph SDK
var (
	// Session errors
	ErrInvalidSession   = errors.New("session is not valid")
	ErrMissingClientID  = errors.New("client id is required")
	ErrMissingToken     = errors.New("access token is required")
	ErrLoginCancelled   = errors.New("login cancelled")
	ErrLoginFailed      = errors.New("login failed")
	ErrUnhandledURL     = errors.New("url is not handled by this client")
	ErrStateMismatch    = errors.New("mismatched OAuth state")
	ErrMissingState     = errors.New("OAuth state missing")
	ErrFlowStateExpired = errors.New("authorization flow expired")

	// Request errors
	ErrOperationFailed = errors.New("This operation can not be completed")
	ErrInvalidPath     = errors.New("invalid graph path")
	ErrInvalidMethod   = errors.New("unsupported http method")

	// Dialog errors
	ErrDialogDismissed = errors.New("dialog dismissed")
	ErrBrowser         = errors.New("unable to open browser")

	// Storage errors
	ErrNotFound      = errors.New("not found")
	ErrSealedRecord  = errors.New("unable to open sealed record")
	ErrMissingSecret = errors.New("store passphrase is required")

	// General errors
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
	ErrClosed      = errors.New("client closed")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join joins errors, dropping nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}
