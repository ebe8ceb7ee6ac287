package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/barbamx/tello-drone-pilot/internal/config"
)

// Verifier checks bearer tokens signed with HS256 or RS256.
type Verifier struct {
	algorithm string
	secret    []byte
	publicKey *rsa.PublicKey
}

// NewVerifier builds a verifier from the API auth settings. RS256 reads
// the PEM public key from PublicKeyFile.
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	v := &Verifier{algorithm: cfg.Algorithm}

	switch cfg.Algorithm {
	case "HS256":
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("HS256 requires secret key")
		}
		v.secret = []byte(cfg.SecretKey)
	case "RS256":
		pemData, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		key, err := ParseRSAPublicKeyPEM(pemData)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key from PEM: %w", err)
		}
		v.publicKey = key
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", cfg.Algorithm)
	}
	return v, nil
}

// VerifyToken verifies signature and expiry and returns the claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, jwt.WithValidMethods([]string{v.algorithm}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return extractClaims(claims)
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch v.algorithm {
	case "HS256":
		return v.secret, nil
	case "RS256":
		return v.publicKey, nil
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

func extractClaims(claims jwt.MapClaims) (*Claims, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("missing or invalid 'sub' claim")
	}

	roles, err := stringSlice(claims, "roles")
	if err != nil {
		return nil, err
	}
	scopes, err := stringSlice(claims, "scopes")
	if err != nil {
		return nil, err
	}

	for _, r := range roles {
		if r != RoleObserver && r != RolePilot {
			return nil, fmt.Errorf("invalid role: %s", r)
		}
	}
	for _, s := range scopes {
		if s != ScopeRead && s != ScopeControl && s != ScopeTelemetry {
			return nil, fmt.Errorf("invalid scope: %s", s)
		}
	}
	if len(roles) == 0 || len(scopes) == 0 {
		return nil, fmt.Errorf("token carries no roles or scopes")
	}

	return &Claims{Subject: sub, Roles: roles, Scopes: scopes}, nil
}

func stringSlice(claims jwt.MapClaims, key string) ([]string, error) {
	value, ok := claims[key]
	if !ok {
		return nil, fmt.Errorf("missing claim: %s", key)
	}

	switch val := value.(type) {
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid %s claim: not a string", key)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("invalid %s claim: not a string array", key)
}

// ParseRSAPublicKeyPEM decodes a PKIX "PUBLIC KEY" block.
func ParseRSAPublicKeyPEM(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaPub, nil
}
