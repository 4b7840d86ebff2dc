package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
	ErrNotFound      = errors.New("not found")
)

// Error: ошибка ядра с типом; errors.Is работает по сентинелам выше.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // поле -> правило валидации
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrAuthorization:
		return e.Kind == KindAuthorization
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// ConflictWrap сохраняет причину (например, ошибку уникального индекса).
func ConflictWrap(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf возвращает тип ошибки ядра или пустую строку для прочих ошибок.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
