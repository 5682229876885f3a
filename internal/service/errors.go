// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bigkaa/promovault/internal/repository"
)

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUnauthenticated — неверные учётные данные или нет сессии.
	ErrUnauthenticated = errors.New("неверный email или пароль")
	// ErrForbidden — сессия есть, но не того домена.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrUnavailable — хранилище не ответило вовремя, запрос можно повторить.
	ErrUnavailable = errors.New("хранилище временно недоступно")
)

// translate переводит ошибку репозитория в ошибку сервисного слоя.
// what — описание операции для сообщения об ошибке.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repository.ErrTimeout):
		return fmt.Errorf("%w: %s", ErrUnavailable, what)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// requireID проверяет, что id — корректный UUID.
// Некорректный идентификатор не может существовать в хранилище.
func requireID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s '%s'", ErrNotFound, what, id)
	}
	return nil
}
