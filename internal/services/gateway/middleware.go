package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/NordCoder/AuthGate/internal/domain/autherr"
)

type ctxKey int

const userIDKey ctxKey = 1

func UserIDFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// requireAuth rejects requests without a valid bearer access token and
// stores the subject id in the request context. Rejections go through the
// same taxonomy mapper as every other error.
func (c *Controller) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearer(r)
		if tok == "" {
			c.fail(w, r, autherr.New(autherr.Authentication, "missing bearer token"))
			return
		}
		uid, err := c.uc.ParseAccess(tok)
		if err != nil {
			c.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
	})
}

func bearer(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if v == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(v), "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}
