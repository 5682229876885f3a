// auth.go — аутентификация посетителей (общий пароль галереи)
// и администраторов (email + хэш пароля).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/promovault/internal/credential"
	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
)

var loginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pv_login_attempts_total",
	Help: "Количество попыток входа по домену и результату.",
}, []string{"domain", "result"})

// VisitorLogin — данные входа или регистрации посетителя.
type VisitorLogin struct {
	// Email — в том виде, в котором введён
	Email string
	// Password — общий пароль галереи
	Password string
	// FirstName, LastName — nil, если не переданы (имя не меняется)
	FirstName *string
	LastName  *string
	// IP — адрес клиента
	IP string
	// UserAgent — строка User-Agent клиента
	UserAgent string
}

// AuthService — аутентификация в обоих доменах.
type AuthService struct {
	settings repository.SettingsRepository
	visitors repository.VisitorRepository
	admins   repository.AdminRepository
	audit    *AuditLog
	tx       TxRunner
	shared   credential.SharedSecretVerifier
	hasher   credential.HashVerifier
	logger   *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(
	settings repository.SettingsRepository,
	visitors repository.VisitorRepository,
	admins repository.AdminRepository,
	audit *AuditLog,
	tx TxRunner,
	hasher credential.HashVerifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		settings: settings,
		visitors: visitors,
		admins:   admins,
		audit:    audit,
		tx:       tx,
		hasher:   hasher,
		logger:   logger.With(slog.String("component", "auth_service")),
	}
}

// NormalizeEmail приводит email к каноническому виду (без пробелов, нижний регистр).
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthenticateVisitor проверяет общий пароль галереи и создаёт или обновляет посетителя.
// Каждый вызов, прошедший валидацию входных данных, добавляет ровно одну
// запись в журнал входов. При верном пароле посетитель и запись журнала
// сохраняются в одной транзакции: если запись не удалась, посетитель не
// меняется и сессия не выдаётся.
func (s *AuthService) AuthenticateVisitor(ctx context.Context, in VisitorLogin) (*model.Visitor, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email и пароль обязательны", ErrValidation)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, translate(err, "чтение настроек галереи")
	}

	attempt := &model.LoginAttempt{
		Email:     in.Email,
		IPAddress: in.IP,
		UserAgent: in.UserAgent,
	}

	if !s.shared.Verify(settings.GalleryPassword, in.Password) {
		// Неуспешная попытка привязывается к существующему посетителю, если он есть
		existing, lookupErr := s.visitors.GetByEmail(ctx, email)
		if lookupErr == nil {
			attempt.VisitorID = &existing.ID
		} else if !errors.Is(lookupErr, repository.ErrNotFound) {
			s.logger.Warn("Не удалось найти посетителя для журнала",
				slog.String("email", email),
				slog.String("error", lookupErr.Error()),
			)
		}
		if err := s.recordAttempt(ctx, attempt); err != nil {
			return nil, err
		}
		loginAttemptsTotal.WithLabelValues("visitor", "failure").Inc()
		return nil, ErrUnauthenticated
	}

	var visitor *model.Visitor
	var upsertErr error
	err = s.tx.RunInTx(ctx, func(tx repository.DBTX) error {
		v, err := s.visitors.WithTx(tx).Upsert(ctx, email, in.FirstName, in.LastName)
		if err != nil {
			upsertErr = err
			return err
		}
		attempt.VisitorID = &v.ID
		attempt.Success = true
		if err := s.audit.recordIn(ctx, tx, attempt); err != nil {
			return err
		}
		visitor = v
		return nil
	})
	if err == nil {
		loginAttemptsTotal.WithLabelValues("visitor", "success").Inc()
		return visitor, nil
	}

	if upsertErr == nil {
		loginAttemptsTotal.WithLabelValues("visitor", "error").Inc()
		s.logger.Error("Не удалось записать попытку входа",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, translate(err, "сохранение входа посетителя")
	}

	// Транзакция откатилась: попытка фиксируется как неуспешная и без посетителя
	failed := &model.LoginAttempt{
		Email:     in.Email,
		IPAddress: in.IP,
		UserAgent: in.UserAgent,
	}
	if err := s.recordAttempt(ctx, failed); err != nil {
		return nil, err
	}
	loginAttemptsTotal.WithLabelValues("visitor", "error").Inc()
	return nil, translate(upsertErr, "сохранение посетителя")
}

// recordAttempt пишет попытку вне транзакции и логирует сбой журнала.
func (s *AuthService) recordAttempt(ctx context.Context, attempt *model.LoginAttempt) error {
	if err := s.audit.Record(ctx, attempt); err != nil {
		loginAttemptsTotal.WithLabelValues("visitor", "error").Inc()
		s.logger.Error("Не удалось записать попытку входа",
			slog.String("email", attempt.Email),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// AuthenticateAdmin проверяет email и пароль администратора.
// Неизвестный email и неверный пароль дают одну и ту же ошибку.
func (s *AuthService) AuthenticateAdmin(ctx context.Context, email, password string) (*model.Admin, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email и пароль обязательны", ErrValidation)
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			loginAttemptsTotal.WithLabelValues("admin", "failure").Inc()
			return nil, ErrUnauthenticated
		}
		loginAttemptsTotal.WithLabelValues("admin", "error").Inc()
		return nil, translate(err, "поиск администратора")
	}

	if !s.hasher.Verify(admin.PasswordHash, password) {
		loginAttemptsTotal.WithLabelValues("admin", "failure").Inc()
		return nil, ErrUnauthenticated
	}

	loginAttemptsTotal.WithLabelValues("admin", "success").Inc()
	s.logger.Info("Вход администратора", slog.String("admin_id", admin.ID))
	return admin, nil
}

// GetVisitor возвращает посетителя текущей сессии.
func (s *AuthService) GetVisitor(ctx context.Context, id string) (*model.Visitor, error) {
	if err := requireID(id, "посетитель"); err != nil {
		return nil, err
	}
	v, err := s.visitors.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "посетитель "+id)
	}
	return v, nil
}

// GetAdmin возвращает администратора текущей сессии.
func (s *AuthService) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	if err := requireID(id, "администратор"); err != nil {
		return nil, err
	}
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "администратор "+id)
	}
	return a, nil
}

// ListVisitors возвращает всех посетителей, новые первыми.
func (s *AuthService) ListVisitors(ctx context.Context) ([]*model.Visitor, error) {
	visitors, err := s.visitors.List(ctx)
	if err != nil {
		return nil, translate(err, "список посетителей")
	}
	return visitors, nil
}

// EnsureAdmin создаёт или обновляет администратора при старте.
// Пароль хэшируется текущей схемой, поэтому смена схемы применяется при перезапуске.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (*model.Admin, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email и пароль администратора обязательны", ErrValidation)
	}
	if name == "" {
		name = "Admin"
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	admin := &model.Admin{Email: email, PasswordHash: hash, Name: name}
	if err := s.admins.Upsert(ctx, admin); err != nil {
		return nil, translate(err, "сохранение администратора")
	}

	s.logger.Info("Администратор подготовлен",
		slog.String("email", email),
		slog.String("hash_scheme", s.hasher.Scheme()),
	)
	return admin, nil
}
