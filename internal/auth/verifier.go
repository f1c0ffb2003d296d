// Package auth provides JWT verification helpers.
package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Verifier validates bearer tokens and extracts tenant/role claims.
// Supports modes: dev (tenant:role, no verify), hmac (HS256), jwks (RS256 from JWKS URL).
type Verifier struct {
	Mode        string
	HMACSecret  []byte
	JWKSURL     string
	TenantClaim string
	RoleClaim   string
	http        *http.Client
	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastFetch   time.Time
	cacheTTL    time.Duration
}

type jwks struct {
	Keys []jwk `json:"keys"`
}
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type Principal struct {
	Tenant  string
	Role    string
	Subject string
}

type Options struct {
	Mode        string
	HMACSecret  string
	JWKSURL     string
	TenantClaim string
	RoleClaim   string
}

func NewVerifier(o Options) *Verifier {
	mode := strings.ToLower(strings.TrimSpace(o.Mode))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{
		Mode:        mode,
		HMACSecret:  []byte(o.HMACSecret),
		JWKSURL:     o.JWKSURL,
		TenantClaim: or(o.TenantClaim, "tenant"),
		RoleClaim:   or(o.RoleClaim, "role"),
		http:        &http.Client{Timeout: 5 * time.Second},
		cacheTTL:    10 * time.Minute,
	}
}

func or(v, d string) string {
	if v != "" {
		return v
	}
	return d
}

func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == "dev" {
		// token format: tenant:role
		parts := strings.Split(token, ":")
		if len(parts) >= 2 && parts[0] != "" {
			return Principal{Tenant: parts[0], Role: strings.ToLower(parts[1])}, nil
		}
		return Principal{}, fmt.Errorf("%w: expected tenant:role", ErrInvalidToken)
	}

	var keyFunc jwt.Keyfunc
	var methods []string
	switch v.Mode {
	case "hmac":
		methods = []string{jwt.SigningMethodHS256.Alg()}
		keyFunc = func(*jwt.Token) (any, error) { return v.HMACSecret, nil }
	case "jwks":
		methods = []string{jwt.SigningMethodRS256.Alg()}
		keyFunc = func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return v.rsaKey(kid)
		}
	default:
		return Principal{}, fmt.Errorf("unsupported auth mode %q", v.Mode)
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, keyFunc, jwt.WithValidMethods(methods))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return Principal{}, ErrInvalidToken
	}

	tenant, _ := claims[v.TenantClaim].(string)
	role, _ := claims[v.RoleClaim].(string)
	sub, _ := claims.GetSubject()
	if tenant == "" {
		return Principal{}, fmt.Errorf("%w: missing tenant claim", ErrInvalidToken)
	}
	if role == "" {
		role = "viewer"
	}
	return Principal{Tenant: tenant, Role: strings.ToLower(role), Subject: sub}, nil
}

// rsaKey returns the JWKS key for kid, refetching when the cache is empty or stale.
func (v *Verifier) rsaKey(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key := v.keys[kid]
	stale := time.Since(v.lastFetch) > v.cacheTTL
	v.mu.RUnlock()
	if key != nil && !stale {
		return key, nil
	}
	if err := v.fetchJWKS(); err != nil {
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if k := v.keys[kid]; k != nil {
		return k, nil
	}
	return nil, errors.New("kid not found in JWKS")
}

func (v *Verifier) fetchJWKS() error {
	if v.JWKSURL == "" {
		return errors.New("AUTH_JWKS_URL not set")
	}
	resp, err := v.http.Get(v.JWKSURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	var j jwks
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return err
	}
	keys := map[string]*rsa.PublicKey{}
	for _, k := range j.Keys {
		if !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return err
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return err
		}
		keys[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(new(big.Int).SetBytes(eBytes).Int64())}
	}
	v.mu.Lock()
	v.keys = keys
	v.lastFetch = time.Now()
	v.mu.Unlock()
	return nil
}
