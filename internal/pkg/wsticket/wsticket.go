// Package wsticket issues the short-lived tokens a browser passes as a query
// parameter when opening the events websocket.
package wsticket

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("missing WS_TOKEN_SECRET")
	ErrInvalidTicket = errors.New("invalid websocket token")
)

type Claims struct {
	UserID       string `json:"user_id"`
	SessionToken string `json:"session_token"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue binds a ticket to the user and the session it was requested with.
func (i *Issuer) Issue(userID, sessionToken string) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrMissingSecret
	}
	now := i.now()
	claims := Claims{
		UserID:       userID,
		SessionToken: sessionToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks signature and expiry and requires both bound values.
func (i *Issuer) Verify(ticket string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, ErrMissingSecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(ticket, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidTicket
	}
	if claims.UserID == "" || claims.SessionToken == "" {
		return nil, ErrInvalidTicket
	}
	return claims, nil
}
