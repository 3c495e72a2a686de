package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndParse(t *testing.T) {
	tok, err := GenerateToken(secret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	owner, err := ParseToken(secret, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if owner != "alice" {
		t.Fatalf("expected alice, got %q", owner)
	}

	if _, err := ParseToken("another-secret-another-secret-xx", tok); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(past),
	}})
	s, _ := expired.SignedString([]byte(secret))
	if _, err := ParseToken(secret, s); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}})
	s, _ = noExpiry.SignedString([]byte(secret))
	if _, err := ParseToken(secret, s); err == nil {
		t.Fatalf("expected token without expiry to be rejected")
	}

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	s, _ = hs512.SignedString([]byte(secret))
	if _, err := ParseToken(secret, s); err == nil {
		t.Fatalf("expected unexpected algorithm to be rejected")
	}
}

func TestGenerateTokenValidation(t *testing.T) {
	if _, err := GenerateToken("", "alice", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := GenerateToken(secret, " ", time.Hour); err == nil {
		t.Fatalf("expected error for empty owner")
	}
}

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ := OwnerFrom(r.Context())
		_, _ = w.Write([]byte(owner))
	})
}

func TestMiddleware(t *testing.T) {
	tok, err := GenerateToken(secret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tests := []struct {
		name       string
		secret     string
		header     string
		query      string
		wantStatus int
		wantOwner  string
	}{
		{name: "no secret uses default owner", wantStatus: http.StatusOK, wantOwner: "me"},
		{name: "bearer header", secret: secret, header: "Bearer " + tok, wantStatus: http.StatusOK, wantOwner: "alice"},
		{name: "lowercase scheme", secret: secret, header: "bearer " + tok, wantStatus: http.StatusOK, wantOwner: "alice"},
		{name: "query token", secret: secret, query: "?token=" + tok, wantStatus: http.StatusOK, wantOwner: "alice"},
		{name: "missing token", secret: secret, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", secret: secret, header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "basic auth is ignored", secret: secret, header: "Basic YWxpY2U6cHc=", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Middleware(tt.secret, "me")(ownerEcho())
			req := httptest.NewRequest(http.MethodGet, "/api/entries"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && rec.Body.String() != tt.wantOwner {
				t.Fatalf("owner = %q, want %q", rec.Body.String(), tt.wantOwner)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("expected WWW-Authenticate header")
			}
		})
	}
}
