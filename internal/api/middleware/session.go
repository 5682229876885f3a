// session.go — middleware сессий посетителей и администраторов.
// Сессия читается из cookie своего домена и проверяется Authority.
// Недействительная сессия ведёт себя как отсутствующая.
package middleware

import (
	"context"
	"net/http"

	apierrors "github.com/bigkaa/promovault/internal/api/errors"
	"github.com/bigkaa/promovault/internal/session"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyVisitor — claims сессии посетителя.
	ContextKeyVisitor contextKey = "visitor_session"
	// ContextKeyAdmin — claims сессии администратора.
	ContextKeyAdmin contextKey = "admin_session"
)

// SessionAuth — middleware сессий обоих доменов.
type SessionAuth struct {
	authority *session.Authority
}

// NewSessionAuth создаёт middleware поверх Authority.
func NewSessionAuth(authority *session.Authority) *SessionAuth {
	return &SessionAuth{authority: authority}
}

// RequireVisitor пропускает запрос только с действующей сессией посетителя.
// Администратор без сессии посетителя получает 403, аноним — 401.
func (s *SessionAuth) RequireVisitor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := s.authority.FromRequest(r, session.DomainVisitor)
			if err != nil {
				if _, aerr := s.authority.FromRequest(r, session.DomainAdmin); aerr == nil {
					apierrors.Forbidden(w, "Недостаточно прав: требуется сессия посетителя")
					return
				}
				apierrors.Unauthorized(w, "Требуется вход в галерею")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyVisitor, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalVisitor добавляет сессию посетителя в контекст, если она действительна.
// Запрос без сессии проходит дальше.
func (s *SessionAuth) OptionalVisitor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := s.authority.FromRequest(r, session.DomainVisitor); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ContextKeyVisitor, claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin пропускает запрос только с действующей сессией администратора.
// Посетитель без сессии администратора получает 403, аноним — 401.
func (s *SessionAuth) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := s.authority.FromRequest(r, session.DomainAdmin)
			if err != nil {
				if _, verr := s.authority.FromRequest(r, session.DomainVisitor); verr == nil {
					apierrors.Forbidden(w, "Недостаточно прав: требуется сессия администратора")
					return
				}
				apierrors.Unauthorized(w, "Требуется вход администратора")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyAdmin, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VisitorFromContext возвращает claims сессии посетителя или nil.
func VisitorFromContext(ctx context.Context) *session.Claims {
	claims, _ := ctx.Value(ContextKeyVisitor).(*session.Claims)
	return claims
}

// AdminFromContext возвращает claims сессии администратора или nil.
func AdminFromContext(ctx context.Context) *session.Claims {
	claims, _ := ctx.Value(ContextKeyAdmin).(*session.Claims)
	return claims
}
