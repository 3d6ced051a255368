package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// JWTKey signs access tokens. Overridden from config at startup.
var JWTKey = []byte("library-secret-key")

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoAuth       = errors.New("no auth info in context")
)

type Claims struct {
	Profile struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"profile"`
	jwt.RegisteredClaims
}

// NewToken issues a signed HS256 token carrying the user's email and role.
func NewToken(username, role string, ttl time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	claims.Profile.Username = username
	claims.Profile.Role = role

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTKey)
}

func ParseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return JWTKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type ctxKey int

const authKey ctxKey = iota + 1

type Info struct {
	Username string
	Role     string
}

func SetAuthContext(ctx context.Context, username, role string) context.Context {
	return context.WithValue(ctx, authKey, Info{Username: username, Role: role})
}

func FromContext(ctx context.Context) (Info, error) {
	info, ok := ctx.Value(authKey).(Info)
	if !ok {
		return Info{}, ErrNoAuth
	}
	return info, nil
}
