package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func serveWithAuth(a Auth, header string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	BearerAuth(a)(okHandler()).ServeHTTP(rr, req)
	return rr.Code
}

func TestBearerAuth_StaticToken(t *testing.T) {
	a := Auth{Token: testToken}
	tests := []struct {
		header string
		want   int
	}{
		{"Bearer " + testToken, http.StatusNoContent},
		{"Bearer wrong", http.StatusUnauthorized},
		{testToken, http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if got := serveWithAuth(a, tt.header); got != tt.want {
			t.Errorf("header %q: status = %d, want %d", tt.header, got, tt.want)
		}
	}
}

func TestBearerAuth_Disabled(t *testing.T) {
	if got := serveWithAuth(Auth{}, ""); got != http.StatusNoContent {
		t.Errorf("status = %d, want %d", got, http.StatusNoContent)
	}
}

func TestBearerAuth_JWT(t *testing.T) {
	a := Auth{Secret: testSecret}

	tok, err := IssueToken(testSecret, "ops", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if got := serveWithAuth(a, "Bearer "+tok); got != http.StatusNoContent {
		t.Errorf("valid jwt: status = %d", got)
	}

	expired, _ := IssueToken(testSecret, "ops", -time.Minute)
	if got := serveWithAuth(a, "Bearer "+expired); got != http.StatusUnauthorized {
		t.Errorf("expired jwt: status = %d", got)
	}

	other, _ := IssueToken([]byte("another-secret-another-secret-xx"), "ops", time.Hour)
	if got := serveWithAuth(a, "Bearer "+other); got != http.StatusUnauthorized {
		t.Errorf("foreign jwt: status = %d", got)
	}

	// Static token and JWT can be combined.
	both := Auth{Token: testToken, Secret: testSecret}
	if serveWithAuth(both, "Bearer "+testToken) != http.StatusNoContent || serveWithAuth(both, "Bearer "+tok) != http.StatusNoContent {
		t.Error("combined auth rejected a valid credential")
	}
}

func TestValidateToken(t *testing.T) {
	tok, err := IssueToken(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := ValidateToken(testSecret, tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "alice" || claims.Issuer != "contractd" {
		t.Errorf("claims = %+v", claims)
	}

	// No expiry.
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString(testSecret)
	if _, err := ValidateToken(testSecret, noExp); err == nil {
		t.Error("token without exp accepted")
	}

	// Wrong algorithm.
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	if _, err := ValidateToken(testSecret, hs512); err == nil {
		t.Error("HS512 token accepted")
	}

	if _, err := IssueToken(nil, "x", time.Hour); err == nil {
		t.Error("IssueToken with empty secret succeeded")
	}
}
