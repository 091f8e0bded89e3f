package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func guardedRouter(svc TokenService) *gin.Engine {
	r := gin.New()
	r.GET("/me", Guard(svc, nil), func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, p.Username)
	})
	return r
}

func TestGuardSigned(t *testing.T) {
	svc := newSigned(t, newAlice(), &clock{t: time.Now()})
	set, err := svc.Issue(context.Background(), Credentials{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	r := guardedRouter(svc)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid access", "Bearer " + set.AccessToken, http.StatusOK},
		{"lowercase scheme", "bearer " + set.AccessToken, http.StatusUnauthorized},
		{"uppercase scheme", "BEARER " + set.AccessToken, http.StatusUnauthorized},
		{"refresh token", "Bearer " + set.RefreshToken, http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + set.AccessToken, http.StatusUnauthorized},
		{"scheme only", "Bearer", http.StatusUnauthorized},
		{"extra segment", "Bearer " + set.AccessToken + " x", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body)
			}
			if tt.want == http.StatusUnauthorized && w.Body.String() != `{"error":"Unauthorized"}` {
				t.Fatalf("body = %s", w.Body)
			}
			if tt.want == http.StatusOK && w.Body.String() != "alice" {
				t.Fatalf("body = %s", w.Body)
			}
		})
	}
}

type brokenService struct{ *OpaqueService }

func (brokenService) Scheme() string { return SchemeToken }
func (brokenService) Validate(context.Context, string) (model.Principal, error) {
	return model.Principal{}, errors.New("connection refused")
}

func TestGuardBackendFailureIsNotUnauthorized(t *testing.T) {
	r := guardedRouter(brokenService{})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header, token, reason string
	}{
		{"Token abc", "abc", ""},
		{"  Token   abc  ", "abc", ""},
		{"", "", "missing_header"},
		{"Basic abc", "", "bad_scheme"},
		{"token abc", "", "bad_scheme"},
		{"TOKEN abc", "", "bad_scheme"},
		{"Token", "", "missing_token"},
		{"Token a b", "", "malformed_header"},
	}
	for _, tt := range tests {
		tok, reason := extractToken(tt.header, SchemeToken)
		if tok != tt.token || reason != tt.reason {
			t.Errorf("extractToken(%q) = %q, %q; want %q, %q", tt.header, tok, reason, tt.token, tt.reason)
		}
	}
}
