// Package auth превращает bearer-токены (HS256 JWT) в доменного принципала.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

// ErrInvalidToken — токен не прошёл проверку подписи, срока или формата.
var ErrInvalidToken = errors.New("invalid token")

// DefaultTTL — срок жизни токенов, выпускаемых Issue.
const DefaultTTL = 15 * time.Minute

// Claims — полезная нагрузка токена доступа.
type Claims struct {
	UserID int64 `json:"user_id"`
	RoleID int   `json:"role_id"`
	jwt.RegisteredClaims
}

// Verifier проверяет токены общим секретом.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier создаёт Verifier. issuer может быть пустым: тогда iss не проверяется.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify разбирает токен и возвращает принципала.
func (v *Verifier) Verify(token string) (domain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Principal{}, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return domain.Principal{}, fmt.Errorf("%w: user_id is missing", ErrInvalidToken)
	}

	return domain.Principal{ID: claims.UserID, Role: domain.Role(claims.RoleID)}, nil
}

// Issue подписывает токен для принципала. Используется dev-утилитой и тестами.
func (v *Verifier) Issue(p domain.Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := v.now()

	claims := Claims{
		UserID: p.ID,
		RoleID: int(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   fmt.Sprint(p.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
