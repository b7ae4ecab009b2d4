package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/pkg/cache"
)

// GoogleCertsURL serves the x509 certificates Firebase ID tokens are signed with.
const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const (
	certsKey        = "securetoken"
	defaultCertsTTL = time.Hour
)

type firebaseClaims struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	AuthTime int64  `json:"auth_time,omitempty"`
	jwtv5.RegisteredClaims
}

// FirebaseVerifier checks Firebase ID tokens against Google's public
// certificates. Certificates are cached for as long as the response's
// Cache-Control max-age allows.
type FirebaseVerifier struct {
	projectID string
	certsURL  string
	client    *http.Client
	keys      *cache.TTLCache[map[string]*rsa.PublicKey]
	fetchMu   sync.Mutex
	logger    *zap.Logger
}

// FirebaseOption configures a FirebaseVerifier.
type FirebaseOption func(*FirebaseVerifier)

// WithCertsURL points the verifier at another certificate endpoint.
func WithCertsURL(url string) FirebaseOption {
	return func(v *FirebaseVerifier) { v.certsURL = url }
}

// WithHTTPClient replaces the client used to fetch certificates.
func WithHTTPClient(c *http.Client) FirebaseOption {
	return func(v *FirebaseVerifier) { v.client = c }
}

func NewFirebaseVerifier(projectID string, logger *zap.Logger, opts ...FirebaseOption) *FirebaseVerifier {
	v := &FirebaseVerifier{
		projectID: projectID,
		certsURL:  GoogleCertsURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		keys:      cache.New[map[string]*rsa.PublicKey](defaultCertsTTL),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Close stops the certificate cache.
func (v *FirebaseVerifier) Close() {
	v.keys.Stop()
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	keyFunc := func(t *jwtv5.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		keys, err := v.publicKeys(ctx)
		if err != nil {
			return nil, err
		}
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
		return key, nil
	}

	token, err := jwtv5.ParseWithClaims(raw, &firebaseClaims{}, keyFunc,
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithAudience(v.projectID),
		jwtv5.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwtv5.WithIssuedAt(),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		v.logger.Debug("firebase token rejected", zap.Error(err))
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*firebaseClaims)
	if !ok || !token.Valid || claims.Subject == "" || len(claims.Subject) > 128 {
		return nil, ErrTokenInvalid
	}
	return &Identity{UID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

func (v *FirebaseVerifier) publicKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	if keys, ok := v.keys.Get(certsKey); ok {
		return keys, nil
	}

	v.fetchMu.Lock()
	defer v.fetchMu.Unlock()
	if keys, ok := v.keys.Get(certsKey); ok {
		return keys, nil
	}

	keys, ttl, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}
	v.keys.SetWithTTL(certsKey, keys, ttl)
	return keys, nil
}

func (v *FirebaseVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build certs request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("failed to fetch certs: status %d", resp.StatusCode)
	}

	var pems map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pems); err != nil {
		return nil, 0, fmt.Errorf("failed to decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, certPEM := range pems {
		key, err := parseCertKey(certPEM)
		if err != nil {
			return nil, 0, fmt.Errorf("cert %s: %w", kid, err)
		}
		keys[kid] = key
	}

	return keys, maxAge(resp.Header.Get("Cache-Control")), nil
}

func parseCertKey(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate key is not RSA")
	}
	return key, nil
}

// maxAge reads max-age from a Cache-Control header.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return defaultCertsTTL
}
