package autherr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Conflict, KindOf(New(Conflict, "duplicate")))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(0), KindOf(nil))

	wrapped := fmt.Errorf("outer: %w", New(Authentication, "bad credentials"))
	assert.Equal(t, Authentication, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, Authentication))
	assert.False(t, IsKind(wrapped, NotFound))
}

func TestWrap_CauseStaysInternal(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(Upstream, "could not load account", cause)

	assert.NotContains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestFieldDetail(t *testing.T) {
	err := NewField(Validation, "password", "must be at least 6 characters")
	assert.Equal(t, "password", err.Field)
	assert.Contains(t, err.Error(), "password")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", Validation.String())
	assert.Equal(t, "upstream", Upstream.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
