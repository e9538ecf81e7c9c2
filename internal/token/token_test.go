package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		AccessSecret:   []byte("access-secret"),
		RefreshSecret:  []byte("refresh-secret"),
		ActivateSecret: []byte("activate-secret"),
		ResetSecret:    []byte("reset-secret"),
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     7 * 24 * time.Hour,
		ActivateTTL:    24 * time.Hour,
		ResetTTL:       time.Hour,
	}
}

func newTestIssuer(t *testing.T, mutate func(*Config)) *Issuer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	i, err := NewIssuer(cfg)
	require.NoError(t, err)
	return i
}

func TestNewIssuer_EmptySecretRejected(t *testing.T) {
	cfg := testConfig()
	cfg.ResetSecret = nil
	_, err := NewIssuer(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset")
}

func TestRoundTrip_AllClasses(t *testing.T) {
	i := newTestIssuer(t, nil)

	for _, tc := range []struct {
		name  string
		mint  func() (string, error)
		class Class
	}{
		{"access", func() (string, error) { return i.IssueAccess(42) }, ClassAccess},
		{"refresh", func() (string, error) { return i.IssueRefresh(42) }, ClassRefresh},
		{"activate", func() (string, error) { return i.IssuePurpose(ClassActivate, 42) }, ClassActivate},
		{"reset", func() (string, error) { return i.IssuePurpose(ClassReset, 42) }, ClassReset},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := tc.mint()
			require.NoError(t, err)

			uid, err := i.Verify(tok, tc.class)
			require.NoError(t, err)
			assert.Equal(t, int64(42), uid)
		})
	}
}

func TestVerify_CrossClassRejected(t *testing.T) {
	i := newTestIssuer(t, nil)

	reset, err := i.IssuePurpose(ClassReset, 7)
	require.NoError(t, err)
	activate, err := i.IssuePurpose(ClassActivate, 7)
	require.NoError(t, err)

	// Same embedded subject id; still never redeemable across purposes.
	_, err = i.Verify(reset, ClassActivate)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = i.Verify(activate, ClassReset)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := i.IssueAccess(7)
	require.NoError(t, err)
	_, err = i.Verify(access, ClassRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	i := newTestIssuer(t, func(c *Config) {
		c.AccessTTL = time.Hour
		c.Now = func() time.Time { return past }
	})

	tok, err := i.IssueAccess(1)
	require.NoError(t, err)

	// Re-anchor the clock to the present: the token is now an hour stale.
	live := newTestIssuer(t, nil)
	_, err = live.Verify(tok, ClassAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MalformedAndTampered(t *testing.T) {
	i := newTestIssuer(t, nil)

	tok, err := i.IssueAccess(9)
	require.NoError(t, err)

	for _, bad := range []string{
		"",
		"not-a-token",
		"a.b",
		tok + "x",
		strings.Replace(tok, ".", "x", 1),
	} {
		_, err := i.Verify(bad, ClassAccess)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", bad)
	}
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	i := newTestIssuer(t, nil)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UID: 42,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = i.Verify(unsigned, ClassAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingUIDRejected(t *testing.T) {
	i := newTestIssuer(t, nil)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = i.Verify(tok, ClassAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuePurpose_OnlyPurposeClasses(t *testing.T) {
	i := newTestIssuer(t, nil)

	_, err := i.IssuePurpose(ClassAccess, 1)
	require.Error(t, err)
	_, err = i.IssuePurpose(ClassRefresh, 1)
	require.Error(t, err)
}
