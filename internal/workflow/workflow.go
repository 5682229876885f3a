// Пакет workflow — статусы заявок на флаеры и политики переходов между ними.
//
// Две политики:
//   - Permissive — любой допустимый статус может быть установлен из любого
//   - Strict — PENDING → IN_PROGRESS → COMPLETED, отмена из PENDING и IN_PROGRESS;
//     COMPLETED и CANCELLED — конечные
//
// Политика не хранит состояние и безопасна для конкурентного использования.
package workflow

import (
	"fmt"
	"strings"
)

// Status — статус заявки.
type Status string

const (
	// StatusPending — заявка создана и ждёт обработки
	StatusPending Status = "PENDING"
	// StatusInProgress — заявка в работе
	StatusInProgress Status = "IN_PROGRESS"
	// StatusCompleted — заявка выполнена
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled — заявка отменена
	StatusCancelled Status = "CANCELLED"
)

// Коды ошибок переходов.
const (
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidTransition = "INVALID_TRANSITION"
)

// Statuses возвращает все допустимые статусы в порядке жизненного цикла.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}
}

// Valid проверяет, является ли статус одним из четырёх допустимых.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus преобразует строку в Status.
// Сравнение чувствительно к регистру: "pending" — недопустимое значение.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", &TransitionError{
			Code:    CodeInvalidStatus,
			Message: fmt.Sprintf("недопустимый статус %q, допустимые: %s", s, joinStatuses()),
		}
	}
	return st, nil
}

// Policy решает, допустим ли переход из текущего статуса в целевой.
// Оба статуса уже проверены через Valid.
type Policy interface {
	// Name возвращает имя политики (для логов).
	Name() string
	// Check возвращает *TransitionError, если переход запрещён.
	Check(from, to Status) error
}

// Permissive — политика, разрешающая любой переход между допустимыми статусами.
type Permissive struct{}

// Name возвращает "permissive".
func (Permissive) Name() string { return "permissive" }

// Check всегда разрешает переход.
func (Permissive) Check(_, _ Status) error { return nil }

// strictTransitions — матрица допустимых переходов строгой политики.
// Ключ — текущий статус, значение — набор допустимых целевых статусов.
var strictTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusInProgress: true, StatusCancelled: true},
	StatusInProgress: {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:  {}, // Конечный статус
	StatusCancelled:  {}, // Конечный статус
}

// Strict — политика с фиксированным графом переходов.
// Повторная установка текущего статуса допускается и ничего не меняет.
type Strict struct{}

// Name возвращает "strict".
func (Strict) Name() string { return "strict" }

// Check проверяет переход по матрице strictTransitions.
func (Strict) Check(from, to Status) error {
	if from == to {
		return nil
	}
	if strictTransitions[from][to] {
		return nil
	}
	return &TransitionError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("переход %s → %s недопустим", from, to),
	}
}

// PolicyByName возвращает политику по имени из конфигурации.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "permissive":
		return Permissive{}, nil
	case "strict":
		return Strict{}, nil
	default:
		return nil, fmt.Errorf("неизвестная политика переходов: %q", name)
	}
}

// TransitionError — ошибка установки статуса.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_STATUS, INVALID_TRANSITION)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func joinStatuses() string {
	all := Statuses()
	parts := make([]string, len(all))
	for i, s := range all {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
