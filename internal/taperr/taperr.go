package taperr

import (
	"errors"
	"fmt"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code carried by err, or CodeInternal for plain errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func HardwareUnsupported(msg string) error {
	return New(CodeHardwareUnsupported, msg)
}

func HardwareDisabled(msg string) error {
	return New(CodeHardwareDisabled, msg)
}

func InvalidSignature(msg string) error {
	return New(CodeInvalidSignature, msg)
}

func StalePayload(msg string) error {
	return New(CodeStalePayload, msg)
}

func UserDeclined(msg string) error {
	return New(CodeUserDeclined, msg)
}

func BackendFailure(msg string) error {
	return New(CodeBackendFailure, msg)
}

func Timeout(msg string) error {
	return New(CodeTimeout, msg)
}

func StorageUnavailable(msg string, cause error) error {
	return Wrap(CodeStorageUnavailable, msg, cause)
}

func InvalidPayload(msg string) error {
	return New(CodeInvalidPayload, msg)
}
