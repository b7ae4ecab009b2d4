package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Toucher is notified of every authenticated request.
type Toucher interface {
	Touch(ctx context.Context, id Identity)
}

type middlewareOptions struct {
	queryToken bool
	toucher    Toucher
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareOptions)

// WithQueryToken also accepts ?access_token=. Browsers cannot set headers on
// websocket upgrades, so only the websocket route should use it.
func WithQueryToken() MiddlewareOption {
	return func(o *middlewareOptions) { o.queryToken = true }
}

// WithToucher records the caller after verification.
func WithToucher(t Toucher) MiddlewareOption {
	return func(o *middlewareOptions) { o.toucher = t }
}

// Middleware requires a valid bearer token on every request.
func Middleware(v Verifier, opts ...MiddlewareOption) gin.HandlerFunc {
	var o middlewareOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && o.queryToken {
			token = strings.TrimSpace(c.Query("access_token"))
			ok = token != ""
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		SetIdentity(c, id)
		if o.toucher != nil {
			o.toucher.Touch(c.Request.Context(), *id)
		}

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
