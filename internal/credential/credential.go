// Пакет credential — сравнение секретов.
//
// Общий пароль галереи хранится открытым текстом и сравнивается точно.
// Пароли администраторов хранятся хэшем: sha256 (hex, без соли) или bcrypt.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownScheme — неизвестная схема хэширования.
var ErrUnknownScheme = errors.New("неизвестная схема хэширования")

// SharedSecretVerifier сравнивает введённый пароль с общим паролем галереи.
type SharedSecretVerifier struct{}

// Verify возвращает true только при точном совпадении (с учётом регистра и пробелов).
// Пустой сохранённый пароль не совпадает ни с чем.
func (SharedSecretVerifier) Verify(stored, submitted string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

// HashVerifier — схема хэширования паролей администраторов.
type HashVerifier interface {
	// Scheme возвращает имя схемы (sha256, bcrypt).
	Scheme() string
	// Hash вычисляет хэш пароля для хранения.
	Hash(password string) (string, error)
	// Verify сравнивает пароль с сохранённым хэшем.
	Verify(hash, password string) bool
}

// SHA256 — sha256 hex без соли.
type SHA256 struct{}

// Scheme возвращает "sha256".
func (SHA256) Scheme() string { return "sha256" }

// Hash возвращает sha256(password) в нижнем регистре hex.
func (SHA256) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// Verify сравнивает хэши за постоянное время.
func (s SHA256) Verify(hash, password string) bool {
	want, _ := s.Hash(password)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(want)) == 1
}

// Bcrypt — bcrypt с настраиваемой стоимостью.
type Bcrypt struct {
	// Cost — стоимость bcrypt, 0 — bcrypt.DefaultCost
	Cost int
}

// Scheme возвращает "bcrypt".
func (Bcrypt) Scheme() string { return "bcrypt" }

// Hash вычисляет bcrypt-хэш.
func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("ошибка вычисления bcrypt: %w", err)
	}
	return string(h), nil
}

// Verify сравнивает пароль с bcrypt-хэшем.
func (Bcrypt) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ForScheme возвращает HashVerifier по имени схемы из конфигурации.
func ForScheme(name string) (HashVerifier, error) {
	switch name {
	case "", "sha256":
		return SHA256{}, nil
	case "bcrypt":
		return Bcrypt{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}
