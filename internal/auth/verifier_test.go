package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyDev(t *testing.T) {
	v := NewVerifier(Options{})
	p, err := v.Verify("t_demo:Dispatcher")
	require.NoError(t, err)
	assert.Equal(t, Principal{Tenant: "t_demo", Role: "dispatcher"}, p)

	_, err = v.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyHMAC(t *testing.T) {
	v := NewVerifier(Options{Mode: "hmac", HMACSecret: "s3cret"})
	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	tok := sign(jwt.MapClaims{"tenant": "t1", "role": "ADMIN", "sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}, "s3cret")
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{Tenant: "t1", Role: "admin", Subject: "u1"}, p)

	_, err = v.Verify(sign(jwt.MapClaims{"tenant": "t1"}, "other"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(sign(jwt.MapClaims{"tenant": "t1", "exp": time.Now().Add(-time.Hour).Unix()}, "s3cret"))
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = v.Verify(sign(jwt.MapClaims{"role": "admin"}, "s3cret"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	p, err = v.Verify(sign(jwt.MapClaims{"tenant": "t1"}, "s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "viewer", p.Role)
}

func TestVerifyJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kty: "RSA",
			Kid: "k1",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	v := NewVerifier(Options{Mode: "jwks", JWKSURL: srv.URL})
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"tenant": "t9", "role": "dispatcher"})
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(key)
	require.NoError(t, err)

	p, err := v.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "t9", p.Tenant)

	tok.Header["kid"] = "missing"
	signed, err = tok.SignedString(key)
	require.NoError(t, err)
	_, err = v.Verify(signed)
	assert.Error(t, err)
}

func TestVerifyUnsupportedMode(t *testing.T) {
	_, err := NewVerifier(Options{Mode: "saml"}).Verify("x.y.z")
	assert.Error(t, err)
}
