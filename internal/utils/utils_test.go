package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", "4c1d9a7e-0000-4000-8000-000000000001", "CUSTOMER", 15)
    require.NoError(t, err)

    uid, role, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, "4c1d9a7e-0000-4000-8000-000000000001", uid)
    assert.Equal(t, "CUSTOMER", role)

    _, _, err = ParseAccessToken("other", tok.Token)
    assert.Error(t, err)
}

func TestRandomHexLength(t *testing.T) {
    a, err := RandomHex(32)
    require.NoError(t, err)
    b, err := RandomHex(32)
    require.NoError(t, err)
    assert.Len(t, a, 64)
    assert.NotEqual(t, a, b)
}

func TestPasswordHash(t *testing.T) {
    h, err := HashPassword("pasta1234", 4)
    require.NoError(t, err)
    assert.True(t, VerifySecret(h, "pasta1234"))
    assert.False(t, VerifySecret(h, "pasta12345"))
}

func TestHashRefreshRawIsStable(t *testing.T) {
    assert.Equal(t, HashRefreshRaw("abc"), HashRefreshRaw("abc"))
    assert.Len(t, HashRefreshRaw("abc"), 64)
}

func TestVerifySecretRejectsEmpty(t *testing.T) {
    h, err := HashPassword("ops-token", 0)
    require.NoError(t, err)
    assert.True(t, VerifySecret(h, "ops-token"))
    assert.False(t, VerifySecret(h, ""))
    assert.False(t, VerifySecret("", "ops-token"))
}

func TestResetTokenRoundTrip(t *testing.T) {
    now := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
    tok, err := NewResetToken("reset", "4c1d9a7e-0000-4000-8000-000000000001", "stamp01", 10*time.Minute, now)
    require.NoError(t, err)
    assert.Equal(t, now.Add(10*time.Minute), tok.Exp)

    uid, stamp, err := ParseResetToken("reset", tok.Token, now.Add(9*time.Minute))
    require.NoError(t, err)
    assert.Equal(t, "4c1d9a7e-0000-4000-8000-000000000001", uid)
    assert.Equal(t, "stamp01", stamp)

    _, _, err = ParseResetToken("reset", tok.Token, now.Add(11*time.Minute))
    assert.ErrorIs(t, err, jwt.ErrTokenExpired)

    _, _, err = ParseResetToken("other", tok.Token, now)
    assert.Error(t, err)
}

func TestResetAndAccessTokensDoNotMix(t *testing.T) {
    reset, err := NewResetToken("shared", "u1", "s", time.Hour, time.Now())
    require.NoError(t, err)
    _, _, err = ParseAccessToken("shared", reset.Token)
    assert.Error(t, err)

    access, err := NewAccessToken("shared", "u1", "CUSTOMER", 15)
    require.NoError(t, err)
    _, _, err = ParseResetToken("shared", access.Token, time.Now())
    assert.Error(t, err)
}
