package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the validity window of an access token when the config does
// not override it.
const DefaultTTL = 30 * time.Minute

// Claims is the structured claim set carried by TechHeal access tokens.
// New claims are added as explicit optional fields, never as loose maps.
type Claims struct {
	jwt.RegisteredClaims

	// Name optionally carries the user's display name for clients that want
	// to render it without a profile round trip.
	Name string `json:"name,omitempty"`
}

// Config defines the codec configuration. It is loaded once at startup and
// passed in by the caller; the secret is immutable afterwards.
type Config struct {
	// Secret is the shared HS256 signing key. Required.
	Secret []byte

	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// TTL is the default validity window (DefaultTTL when zero).
	TTL time.Duration
}

// Codec signs and verifies access tokens.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewCodec constructs a Codec. An absent secret is a configuration error; the
// process must refuse to start rather than sign with an empty key.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrConfig
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Codec{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttl:    ttl,
	}, nil
}

// TTL returns the configured default validity window.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject with the default TTL.
func (c *Codec) Issue(subject string, now time.Time) (token string, exp time.Time, err error) {
	return c.IssueTTL(subject, now, c.ttl)
}

// IssueTTL signs a token for subject expiring at now+ttl. A zero or negative
// ttl produces an already-expired token; useful for tests, never for login.
func (c *Codec) IssueTTL(subject string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, ErrInvalidToken
	}

	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode verifies signature, algorithm, structure, and expiry of raw as of
// now, and returns the claim set. Every failure mode maps to ErrInvalidToken.
func (c *Codec) Decode(raw string, now time.Time) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalidToken
	}

	return *claims, nil
}
