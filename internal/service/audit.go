// audit.go — журнал попыток входа посетителей.
// Только добавление записей и чтение последних; изменения и удаления нет.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mssola/useragent"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
)

// Ограничения журнала.
const (
	// MaxUserAgentLen — максимальная длина сохраняемого User-Agent (в символах)
	MaxUserAgentLen = 500
	// MaxAuditLimit — верхняя граница размера выборки
	MaxAuditLimit = 1000
	// UnknownClient — значение для отсутствующего адреса или User-Agent
	UnknownClient = "unknown"
)

// AuditEntry — запись журнала с разбором User-Agent.
type AuditEntry struct {
	*model.LoginAttempt
	// Browser — имя и версия браузера
	Browser string
	// OS — операционная система
	OS string
	// Bot — User-Agent принадлежит роботу
	Bot bool
	// Mobile — мобильное устройство
	Mobile bool
}

// AuditLog — сервис журнала попыток входа.
type AuditLog struct {
	repo         repository.LoginAttemptRepository
	defaultLimit int
	logger       *slog.Logger
}

// NewAuditLog создаёт журнал попыток входа.
// defaultLimit — размер выборки, если вызывающий не указал лимит.
func NewAuditLog(repo repository.LoginAttemptRepository, defaultLimit int, logger *slog.Logger) *AuditLog {
	return &AuditLog{
		repo:         repo,
		defaultLimit: clampLimit(defaultLimit, 500),
		logger:       logger.With(slog.String("component", "audit_log")),
	}
}

// Record добавляет запись в журнал.
// Пустые адрес и User-Agent заменяются на "unknown", User-Agent обрезается до 500 символов.
func (a *AuditLog) Record(ctx context.Context, attempt *model.LoginAttempt) error {
	return a.write(ctx, a.repo, attempt)
}

// recordIn добавляет запись в журнал внутри транзакции tx.
func (a *AuditLog) recordIn(ctx context.Context, tx repository.DBTX, attempt *model.LoginAttempt) error {
	return a.write(ctx, a.repo.WithTx(tx), attempt)
}

func (a *AuditLog) write(ctx context.Context, repo repository.LoginAttemptRepository, attempt *model.LoginAttempt) error {
	attempt.IPAddress = strings.TrimSpace(attempt.IPAddress)
	if attempt.IPAddress == "" {
		attempt.IPAddress = UnknownClient
	}
	if attempt.UserAgent == "" {
		attempt.UserAgent = UnknownClient
	}
	attempt.UserAgent = truncateRunes(attempt.UserAgent, MaxUserAgentLen)

	if err := repo.Create(ctx, attempt); err != nil {
		return translate(err, "запись попытки входа")
	}

	a.logger.Info("Попытка входа",
		slog.String("email", attempt.Email),
		slog.Bool("success", attempt.Success),
		slog.String("ip", attempt.IPAddress),
	)
	return nil
}

// ListRecent возвращает последние записи журнала, новые первыми.
// limit <= 0 — лимит по умолчанию, больше 1000 — 1000.
func (a *AuditLog) ListRecent(ctx context.Context, limit int) ([]*AuditEntry, error) {
	limit = clampLimit(limit, a.defaultLimit)

	attempts, err := a.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, translate(err, "чтение журнала входов")
	}

	entries := make([]*AuditEntry, len(attempts))
	for i, at := range attempts {
		entries[i] = describeClient(at)
	}
	return entries, nil
}

// describeClient разбирает User-Agent записи.
func describeClient(at *model.LoginAttempt) *AuditEntry {
	e := &AuditEntry{LoginAttempt: at}
	if at.UserAgent == "" || at.UserAgent == UnknownClient {
		return e
	}

	ua := useragent.New(at.UserAgent)
	name, version := ua.Browser()
	switch {
	case name != "" && version != "":
		e.Browser = fmt.Sprintf("%s %s", name, version)
	default:
		e.Browser = name
	}
	e.OS = ua.OS()
	e.Bot = ua.Bot()
	e.Mobile = ua.Mobile()
	return e
}

// clampLimit приводит лимит к диапазону 1..1000.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	if limit <= 0 {
		limit = 500
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}
	return limit
}

// truncateRunes обрезает строку до n символов, не разрывая UTF-8.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
