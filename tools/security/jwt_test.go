package security

import (
	"testing"
	"time"

	"PPRelay/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions(secret)
	tok, exp, err := Generate(opts, "42")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	uid, err := Verify(opts, tok)
	require.NoError(t, err)
	assert.Equal(t, "42", uid)
}

func TestVerifyNumericUserIDClaim(t *testing.T) {
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"user_id": 7,
		"exp":     time.Now().Add(time.Minute).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	uid, err := Verify(DefaultOptions(secret), tok)
	require.NoError(t, err)
	assert.Equal(t, "7", uid)
}

func TestVerifyExpired(t *testing.T) {
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"user_id": "1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions(secret), tok)
	require.Error(t, err)
	ce, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.ErrTokenExpired.Msg, ce.Msg)
}

func TestVerifyRejects(t *testing.T) {
	opts := DefaultOptions(secret)
	good, _, err := Generate(opts, "1")
	require.NoError(t, err)

	cases := map[string]struct {
		opts  Options
		token string
		want  errs.CodeError
	}{
		"empty":        {opts, "", errs.ErrTokenRequired},
		"garbage":      {opts, "not-a-jwt", errs.ErrTokenInvalid},
		"wrong secret": {DefaultOptions([]byte("other")), good, errs.ErrTokenInvalid},
		"wrong alg":    {Options{Secret: secret, Alg: "HS512"}, good, errs.ErrTokenInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Verify(tc.opts, tc.token)
			require.Error(t, err)
			ce, ok := errs.As(err)
			require.True(t, ok)
			assert.Equal(t, tc.want.Msg, ce.Msg)
		})
	}
}

func TestVerifyMissingUserID(t *testing.T) {
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions(secret), tok)
	assert.True(t, errors.Is(err, errs.ErrTokenInvalid))
}

func TestUnsupportedAlg(t *testing.T) {
	_, _, err := Generate(Options{Secret: secret, Alg: "RS256"}, "1")
	assert.Error(t, err)
	assert.False(t, ValidAlg("none"))
	assert.True(t, ValidAlg("hs384"))
}

func TestHashTokenStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}
