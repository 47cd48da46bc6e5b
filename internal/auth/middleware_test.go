package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRequire(t *testing.T) {
	mw := NewMiddleware("s3cret")
	var got Identity
	h := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, "other", Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: future},
		}), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, "s3cret", Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: past},
		}), http.StatusUnauthorized},
		{"non-numeric subject", "Bearer " + sign(t, "s3cret", Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: future},
		}), http.StatusUnauthorized},
		{"valid", "Bearer " + sign(t, "s3cret", Claims{
			Role: "member",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: future},
		}), http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}

	if got.UserID != 7 || got.Role != "member" {
		t.Fatalf("identity = %+v", got)
	}
}

func TestFromContextOutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := FromContext(req.Context()); ok {
		t.Fatal("identity present without middleware")
	}
}
