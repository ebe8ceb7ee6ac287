package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/barbamx/tello-drone-pilot/internal/config"
)

const testSecret = "test-secret-key"

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func pilotClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":    "pilot-1",
		"roles":  []string{RolePilot},
		"scopes": []string{ScopeRead, ScopeControl, ScopeTelemetry},
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
}

func observerClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":    "observer-1",
		"roles":  []string{RoleObserver},
		"scopes": []string{ScopeRead, ScopeTelemetry},
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
}

func hsVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(config.AuthConfig{Algorithm: "HS256", SecretKey: testSecret})
	if err != nil {
		t.Fatalf("NewVerifier() failed: %v", err)
	}
	return v
}

func TestNewVerifier(t *testing.T) {
	keyFile, _ := writeTestRSAKey(t)

	tests := []struct {
		name    string
		cfg     config.AuthConfig
		wantErr bool
	}{
		{"HS256 with secret", config.AuthConfig{Algorithm: "HS256", SecretKey: testSecret}, false},
		{"HS256 without secret", config.AuthConfig{Algorithm: "HS256"}, true},
		{"RS256 with key file", config.AuthConfig{Algorithm: "RS256", PublicKeyFile: keyFile}, false},
		{"RS256 missing file", config.AuthConfig{Algorithm: "RS256", PublicKeyFile: "/nonexistent.pem"}, true},
		{"unsupported algorithm", config.AuthConfig{Algorithm: "ES256"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVerifier(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewVerifier() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && v == nil {
				t.Error("NewVerifier() returned nil verifier")
			}
		})
	}
}

func TestVerifyHS256Token(t *testing.T) {
	v := hsVerifier(t)

	claims, err := v.VerifyToken(signHS256(t, pilotClaims()))
	if err != nil {
		t.Fatalf("VerifyToken() failed: %v", err)
	}
	if claims.Subject != "pilot-1" {
		t.Errorf("Expected subject pilot-1, got %s", claims.Subject)
	}
	if !claims.HasScopes(ScopeControl, ScopeRead) {
		t.Errorf("Expected control and read scopes, got %v", claims.Scopes)
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	v := hsVerifier(t)

	expired := pilotClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	badRole := pilotClaims()
	badRole["roles"] = []string{"admin"}

	badScope := pilotClaims()
	badScope["scopes"] = []string{"flip"}

	noSub := pilotClaims()
	delete(noSub, "sub")

	noScopes := pilotClaims()
	noScopes["scopes"] = []string{}

	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, pilotClaims()).SignedString([]byte("other"))

	tests := map[string]string{
		"empty":      "",
		"garbage":    "not.a.jwt",
		"expired":    signHS256(t, expired),
		"bad role":   signHS256(t, badRole),
		"bad scope":  signHS256(t, badScope),
		"no subject": signHS256(t, noSub),
		"no scopes":  signHS256(t, noScopes),
		"wrong key":  wrongKey,
	}
	for name, token := range tests {
		if _, err := v.VerifyToken(token); err == nil {
			t.Errorf("%s: expected verification failure", name)
		}
	}
}

func TestVerifyRS256Token(t *testing.T) {
	keyFile, priv := writeTestRSAKey(t)
	v, err := NewVerifier(config.AuthConfig{Algorithm: "RS256", PublicKeyFile: keyFile})
	if err != nil {
		t.Fatalf("NewVerifier() failed: %v", err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, observerClaims()).SignedString(priv)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	claims, err := v.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() failed: %v", err)
	}
	if claims.Subject != "observer-1" {
		t.Errorf("Expected observer-1, got %s", claims.Subject)
	}

	// an HS256 token must not pass an RS256 verifier
	if _, err := v.VerifyToken(signHS256(t, observerClaims())); err == nil {
		t.Error("Expected algorithm mismatch to fail")
	}
}

func TestMiddleware(t *testing.T) {
	m := NewMiddleware(hsVerifier(t))
	handler := m.RequireAuth(m.RequireScope(ScopeControl)(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Error("Expected claims in handler context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/api/v1/actions/takeoff", "", http.StatusUnauthorized},
		{"not bearer", "/api/v1/actions/takeoff", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "/api/v1/actions/takeoff", "Bearer nope", http.StatusUnauthorized},
		{"observer lacks control", "/api/v1/actions/takeoff", "Bearer " + signHS256(t, observerClaims()), http.StatusForbidden},
		{"pilot allowed", "/api/v1/actions/takeoff", "Bearer " + signHS256(t, pilotClaims()), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestHealthBypassesAuth(t *testing.T) {
	m := NewMiddleware(hsVerifier(t))
	called := false
	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if !called {
		t.Error("Health endpoint should not require auth")
	}
}

func TestRequireScopeWithoutClaims(t *testing.T) {
	m := NewMiddleware(hsVerifier(t))
	handler := m.RequireScope(ScopeRead)(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run")
	})
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func writeTestRSAKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("Failed to marshal public key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pub.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write key: %v", err)
	}
	return path, priv
}
