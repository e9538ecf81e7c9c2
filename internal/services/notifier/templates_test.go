package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivationMessage(t *testing.T) {
	subject, body := activationMessage("http://localhost:8080/api/auth", 42, "tok-abc")

	assert.Equal(t, "Verify your email address", subject)
	assert.Contains(t, body, "http://localhost:8080/api/auth/verify?token=tok-abc&uid=42")
	assert.Contains(t, body, "Welcome to AuthGate!")
}

func TestResetMessage(t *testing.T) {
	subject, body := resetMessage("http://localhost:8080/api/auth", 7, "tok-xyz")

	assert.Equal(t, "Reset your password", subject)
	assert.Contains(t, body, "http://localhost:8080/api/auth/change-password?token=tok-xyz&uid=7")
	assert.NotContains(t, body, "verify?", "reset mail must not carry an activation link")
}
