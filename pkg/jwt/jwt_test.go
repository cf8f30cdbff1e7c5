package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/pkg/jwt"
)

const secret = "secret-de-pruebas"

var vendedor = jwt.Principal{UserID: "u-1", CompanyID: "c-1", Role: "vendedor"}

func TestSignParse_RoundTrip(t *testing.T) {
	tok, err := jwt.Sign(secret, "integraciones-api", vendedor, time.Hour)
	require.NoError(t, err)

	p, err := jwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, vendedor, p)
}

func TestParse_Rechazos(t *testing.T) {
	expirado, err := jwt.Sign(secret, "x", vendedor, -time.Minute)
	require.NoError(t, err)
	sinEmpresa, err := jwt.Sign(secret, "x", jwt.Principal{UserID: "u-1", Role: "admin"}, time.Hour)
	require.NoError(t, err)
	valido, err := jwt.Sign(secret, "x", vendedor, time.Hour)
	require.NoError(t, err)
	none, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, jwt.Claims{CompanyID: "c-1"}).
		SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct{ secret, token string }{
		"expirado":    {secret, expirado},
		"sin empresa": {secret, sinEmpresa},
		"otro secret": {"otro-secret", valido},
		"alg none":    {secret, none},
		"basura":      {secret, "no.es.jwt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jwt.Parse(tc.secret, tc.token)
			assert.ErrorIs(t, err, jwt.ErrInvalidToken)
		})
	}
}

func TestSecretVacio(t *testing.T) {
	_, err := jwt.Sign("", "x", vendedor, time.Hour)
	assert.ErrorIs(t, err, jwt.ErrEmptySecret)
	_, err = jwt.Parse("", "a.b.c")
	assert.ErrorIs(t, err, jwt.ErrEmptySecret)
}
