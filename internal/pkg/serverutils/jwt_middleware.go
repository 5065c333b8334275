package serverutils

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalsUserID       = "user_id"
	LocalsSessionToken = "session_token"
)

type SessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs an HS256 session token for a user.
func IssueSessionToken(secret, userID string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("missing JWT_SECRET")
	}
	expiresAt := now.Add(ttl)
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseSessionToken verifies a session token and returns its user id.
func ParseSessionToken(secret, tokenStr string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.UserID == "" {
		return "", errors.New("token missing user_id")
	}
	return claims.UserID, nil
}

// JwtMiddleware accepts the session token as a bearer token or in the
// X-Session-Token header.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := ctx.Get("X-Session-Token")
		if tokenStr == "" {
			authHeader := ctx.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				tokenStr = authHeader[7:]
			}
		}
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Unauthorized"))
		}

		userID, err := ParseSessionToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Unauthorized"))
		}

		ctx.Locals(LocalsUserID, userID)
		ctx.Locals(LocalsSessionToken, tokenStr)
		return ctx.Next()
	}
}
