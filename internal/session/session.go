// Пакет session — сессии посетителей и администраторов в зашифрованных cookie.
//
// Два независимых домена: visitor и admin. Для каждого домена из общего
// секрета выводится собственный ключ AES-256-GCM (HKDF-SHA256, info = имя домена),
// имя домена также передаётся как associated data. Токен одного домена
// не расшифровывается ключом другого.
//
// Внутри шифротекста — JSON с зарегистрированными claims JWT (sub, aud, iat, exp),
// которые проверяются jwt.Validator: exp обязателен, aud = имя домена.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// ErrUnauthenticated — сессия отсутствует, истекла, повреждена или принадлежит другому домену.
var ErrUnauthenticated = errors.New("сессия недействительна")

// Domain — домен сессии.
type Domain string

const (
	// DomainVisitor — посетители галереи
	DomainVisitor Domain = "visitor"
	// DomainAdmin — администраторы
	DomainAdmin Domain = "admin"
)

// Имена cookie доменов.
const (
	VisitorCookieName = "promovault_session"
	AdminCookieName   = "promovault_admin_session"
)

// CookieName возвращает имя cookie домена.
func (d Domain) CookieName() string {
	if d == DomainAdmin {
		return AdminCookieName
	}
	return VisitorCookieName
}

// Identity — субъект, для которого выпускается сессия.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// Claims — содержимое сессии.
type Claims struct {
	jwt.RegisteredClaims
	// Email — email субъекта
	Email string `json:"email"`
	// Name — отображаемое имя
	Name string `json:"name,omitempty"`
	// Admin — признак администраторской сессии
	Admin bool `json:"adm,omitempty"`
}

// Domain возвращает домен сессии (из aud).
func (c *Claims) Domain() Domain {
	if len(c.Audience) == 0 {
		return ""
	}
	return Domain(c.Audience[0])
}

// Options — параметры Authority.
type Options struct {
	// Secret — общий секрет, не короче 32 байт
	Secret string
	// TTL — время жизни сессии
	TTL time.Duration
	// Secure — Secure flag для cookie
	Secure bool
	// Now — источник времени (для тестов), по умолчанию time.Now
	Now func() time.Time
}

// Authority выпускает и проверяет сессии обоих доменов.
// Не хранит состояние сессий и безопасен для конкурентного использования.
type Authority struct {
	aeads  map[Domain]cipher.AEAD
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// minSecretLen — минимальная длина секрета.
const minSecretLen = 32

// NewAuthority создаёт Authority, выводя ключи доменов из секрета.
func NewAuthority(opts Options) (*Authority, error) {
	if len(opts.Secret) < minSecretLen {
		return nil, fmt.Errorf("секрет сессий короче %d байт", minSecretLen)
	}
	if opts.TTL <= 0 {
		return nil, errors.New("время жизни сессии должно быть положительным")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	a := &Authority{
		aeads:  make(map[Domain]cipher.AEAD, 2),
		ttl:    opts.TTL,
		secure: opts.Secure,
		now:    now,
	}
	for _, d := range []Domain{DomainVisitor, DomainAdmin} {
		aead, err := deriveAEAD(opts.Secret, d)
		if err != nil {
			return nil, err
		}
		a.aeads[d] = aead
	}
	return a, nil
}

// deriveAEAD выводит ключ домена через HKDF и создаёт AES-256-GCM.
func deriveAEAD(secret string, d Domain) (cipher.AEAD, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("promovault/session/"+string(d)))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("ошибка вывода ключа домена %s: %w", d, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}
	return gcm, nil
}

// TTL возвращает время жизни сессии.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

// Issue выпускает токен сессии домена для субъекта.
func (a *Authority) Issue(d Domain, id Identity) (string, time.Time, error) {
	aead, ok := a.aeads[d]
	if !ok {
		return "", time.Time{}, fmt.Errorf("неизвестный домен сессии: %q", d)
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.ID,
			Audience:  jwt.ClaimStrings{string(d)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: id.Email,
		Name:  id.Name,
		Admin: d == DomainAdmin,
	}

	plaintext, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	// Уникальный nonce для каждого шифрования
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, []byte(d))
	return base64.RawURLEncoding.EncodeToString(sealed), expiresAt, nil
}

// Validate расшифровывает и проверяет токен домена.
// Любая ошибка приводит к ErrUnauthenticated.
func (a *Authority) Validate(token string, d Domain) (*Claims, error) {
	aead, ok := a.aeads[d]
	if !ok || token == "" {
		return nil, ErrUnauthenticated
	}

	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: некорректная кодировка", ErrUnauthenticated)
	}
	nonceSize := aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("%w: токен слишком короткий", ErrUnauthenticated)
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(d))
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка дешифрования", ErrUnauthenticated)
	}

	var claims Claims
	if err := json.Unmarshal(plaintext, &claims); err != nil {
		return nil, fmt.Errorf("%w: ошибка десериализации", ErrUnauthenticated)
	}

	validator := jwt.NewValidator(
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(string(d)),
		jwt.WithTimeFunc(a.now),
	)
	if err := validator.Validate(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" || claims.Admin != (d == DomainAdmin) {
		return nil, fmt.Errorf("%w: некорректные claims", ErrUnauthenticated)
	}

	return &claims, nil
}

// Start выпускает сессию и устанавливает cookie домена.
func (a *Authority) Start(w http.ResponseWriter, d Domain, id Identity) error {
	token, expiresAt, err := a.Issue(d, id)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     d.CookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(a.ttl / time.Second),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// FromRequest извлекает и проверяет сессию домена из cookie запроса.
// Отсутствие cookie — ErrUnauthenticated.
func (a *Authority) FromRequest(r *http.Request, d Domain) (*Claims, error) {
	cookie, err := r.Cookie(d.CookieName())
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return a.Validate(cookie.Value, d)
}

// Destroy удаляет cookie домена (logout).
func (a *Authority) Destroy(w http.ResponseWriter, d Domain) {
	http.SetCookie(w, &http.Cookie{
		Name:     d.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
