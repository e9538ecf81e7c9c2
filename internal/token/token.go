// Package token issues and validates the gateway's signed tokens. Each of
// the four classes (access, refresh, activation, reset) carries an
// independent secret and TTL, so a token minted for one class can never be
// redeemed as another.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Class int

const (
	ClassAccess Class = iota
	ClassRefresh
	ClassActivate
	ClassReset
)

func (c Class) String() string {
	switch c {
	case ClassAccess:
		return "access"
	case ClassRefresh:
		return "refresh"
	case ClassActivate:
		return "activate"
	case ClassReset:
		return "reset"
	}
	return "unknown"
}

// Claims carries the subject user id alongside the registered claim set.
type Claims struct {
	jwt.RegisteredClaims
	UID int64 `json:"uid"`
}

type Config struct {
	AccessSecret   []byte
	RefreshSecret  []byte
	ActivateSecret []byte
	ResetSecret    []byte

	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	ActivateTTL time.Duration
	ResetTTL    time.Duration

	Now func() time.Time
}

type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	for _, c := range []Class{ClassAccess, ClassRefresh, ClassActivate, ClassReset} {
		if len(cfg.secretFor(c)) == 0 {
			return nil, fmt.Errorf("token: empty %s secret", c)
		}
	}
	return &Issuer{cfg: cfg}, nil
}

func (c *Config) secretFor(class Class) []byte {
	switch class {
	case ClassAccess:
		return c.AccessSecret
	case ClassRefresh:
		return c.RefreshSecret
	case ClassActivate:
		return c.ActivateSecret
	case ClassReset:
		return c.ResetSecret
	}
	return nil
}

func (c *Config) ttlFor(class Class) time.Duration {
	switch class {
	case ClassAccess:
		return c.AccessTTL
	case ClassRefresh:
		return c.RefreshTTL
	case ClassActivate:
		return c.ActivateTTL
	case ClassReset:
		return c.ResetTTL
	}
	return 0
}

// RefreshTTL exposes the configured refresh lifetime; the ledger records
// digests with the same expiry as the token itself.
func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

func (i *Issuer) IssueAccess(uid int64) (string, error) {
	return i.issue(ClassAccess, uid)
}

func (i *Issuer) IssueRefresh(uid int64) (string, error) {
	return i.issue(ClassRefresh, uid)
}

// IssuePurpose mints a single-intent token (activation or reset) bound to
// one subject.
func (i *Issuer) IssuePurpose(class Class, uid int64) (string, error) {
	if class != ClassActivate && class != ClassReset {
		return "", fmt.Errorf("token: %s is not a purpose class", class)
	}
	return i.issue(class, uid)
}

func (i *Issuer) issue(class Class, uid int64) (string, error) {
	now := i.cfg.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.ttlFor(class))),
		},
		UID: uid,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString(i.cfg.secretFor(class))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", class, err)
	}
	return signed, nil
}

// Verify validates tok under the given class secret and returns the embedded
// user id. It fails closed: bad signature, wrong class, malformed input, and
// expiry all yield ErrInvalidToken, and no claim from an invalid token is
// ever returned.
func (i *Issuer) Verify(tok string, class Class) (int64, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tok, claims,
		func(*jwt.Token) (interface{}, error) { return i.cfg.secretFor(class), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.cfg.Now),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	if claims.UID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.UID, nil
}
