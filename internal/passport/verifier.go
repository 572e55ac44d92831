// Package passport проверяет паспорта внешней очереди, которые разрешают старт транзакции.
package passport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// ErrInvalidPassport — паспорт не прошёл проверку подписи или срока действия.
var ErrInvalidPassport = errors.New("invalid passport")

// Claims — содержимое паспорта.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Verifier проверяет паспорта, подписанные HMAC-секретом.
type Verifier struct {
	secret []byte
}

var _ domain.PassportVerifier = (*Verifier)(nil)

// NewVerifier создаёт проверяющего с секретом.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify проверяет подпись и срок действия паспорта и возвращает издателя и scope.
func (v *Verifier) Verify(_ context.Context, token string) (domain.Passport, error) {
	if len(v.secret) == 0 {
		return domain.Passport{}, fmt.Errorf("%w: secret is not configured", ErrInvalidPassport)
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidPassport, t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Passport{}, fmt.Errorf("%w: %v", ErrInvalidPassport, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Passport{}, ErrInvalidPassport
	}

	return domain.Passport{Issuer: claims.Issuer, Scope: claims.Scope}, nil
}

// Issue подписывает паспорт. Используется очередью ожидания и в тестах.
func Issue(secret string, passport domain.Passport, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Scope: passport.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    passport.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
