package auth

import (
	"context"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const devIssuer = "vibetracker-dev"

type devClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwtv5.RegisteredClaims
}

// DevVerifier accepts HS256 tokens signed with a shared secret. It stands in
// for Firebase when running locally.
type DevVerifier struct {
	secret []byte
}

func NewDevVerifier(secret string) *DevVerifier {
	return &DevVerifier{secret: []byte(secret)}
}

// IssueDevToken signs a token for id that DevVerifier will accept.
func IssueDevToken(secret string, id Identity, ttl time.Duration) (string, error) {
	if id.UID == "" {
		return "", errors.New("uid is required")
	}
	now := time.Now()
	claims := devClaims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   id.UID,
			Issuer:    devIssuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (v *DevVerifier) Verify(_ context.Context, raw string) (*Identity, error) {
	token, err := jwtv5.ParseWithClaims(raw, &devClaims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return v.secret, nil
	}, jwtv5.WithIssuer(devIssuer), jwtv5.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*devClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return &Identity{UID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}
