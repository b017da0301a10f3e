package errors

import (
	"fmt"
	"strings"
)

type ErrMissingEnv struct {
	Keys []string
}

func (e *ErrMissingEnv) Error() string {
	return "не заданы обязательные переменные окружения: " + strings.Join(e.Keys, ", ")
}

func (e *ErrMissingEnv) Is(target error) bool {
	_, ok := target.(*ErrMissingEnv)
	return ok
}

// ErrConnection означает, что NATS сервер недоступен в пределах таймаута подключения.
type ErrConnection struct {
	URL string
	Err error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("ошибка подключения к NATS %s: %v", e.URL, e.Err)
}

func (e *ErrConnection) Unwrap() error {
	return e.Err
}

func (e *ErrConnection) Is(target error) bool {
	_, ok := target.(*ErrConnection)
	return ok
}

type ErrAlreadyRunning struct{}

func (e *ErrAlreadyRunning) Error() string {
	return "updater уже запущен"
}

func (e *ErrAlreadyRunning) Is(target error) bool {
	_, ok := target.(*ErrAlreadyRunning)
	return ok
}

type ErrStillRunning struct{}

func (e *ErrStillRunning) Error() string {
	return "updater всё ещё запущен, сначала вызовите Stop"
}

func (e *ErrStillRunning) Is(target error) bool {
	_, ok := target.(*ErrStillRunning)
	return ok
}

type ErrNotInitialized struct{}

func (e *ErrNotInitialized) Error() string {
	return "updater не инициализирован, сначала вызовите Initialize"
}

func (e *ErrNotInitialized) Is(target error) bool {
	_, ok := target.(*ErrNotInitialized)
	return ok
}

type ErrInvalidUpdate struct {
	Reason string
}

func (e *ErrInvalidUpdate) Error() string {
	return "некорректное обновление Telegram: " + e.Reason
}

type ErrWebhookRegistration struct {
	Description string
	Err         error
}

func (e *ErrWebhookRegistration) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ошибка регистрации webhook: %v", e.Err)
	}

	return "ошибка регистрации webhook: " + e.Description
}

func (e *ErrWebhookRegistration) Unwrap() error {
	return e.Err
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: status code %d", e.StatusCode)
}
