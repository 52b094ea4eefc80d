package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding and decoding functions
    "time"          // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
// Only a SHA‑256 hash of Raw is stored in the database.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a member.  The subject
// claim carries the member's uuid, role carries CUSTOMER or OWNER.
func NewAccessToken(secret string, userID string, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  userID,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and returns the subject and
// role claims.  Only HMAC signing methods are accepted.
func ParseAccessToken(secret, raw string) (userID string, role string, err error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, jwt.ErrTokenSignatureInvalid
        }
        return []byte(secret), nil
    })
    if err != nil {
        return "", "", err
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok || !tok.Valid {
        return "", "", jwt.ErrTokenInvalidClaims
    }
    if _, reset := claims["purpose"]; reset {
        return "", "", jwt.ErrTokenInvalidClaims
    }
    sub, _ := claims["sub"].(string)
    if sub == "" {
        return "", "", jwt.ErrTokenInvalidSubject
    }
    role, _ = claims["role"].(string)
    return sub, role, nil
}

// resetPurpose marks a password reset token so that it can never pass as an
// access token signed with the same secret.
const resetPurpose = "password_reset"

// NewResetToken signs a short-lived token that lets userID set a new
// password without the old one.  stamp is derived from the current password
// hash, so the token stops working once the password changes.
func NewResetToken(secret, userID, stamp string, ttl time.Duration, now time.Time) (AccessToken, error) {
    exp := now.UTC().Add(ttl)
    claims := jwt.MapClaims{
        "sub":     userID,
        "purpose": resetPurpose,
        "stamp":   stamp,
        "exp":     exp.Unix(),
        "iat":     now.UTC().Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseResetToken verifies raw and returns its subject and stamp.  An
// expired token yields an error matching jwt.ErrTokenExpired.
func ParseResetToken(secret, raw string, now time.Time) (userID, stamp string, err error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, jwt.ErrTokenSignatureInvalid
        }
        return []byte(secret), nil
    }, jwt.WithTimeFunc(func() time.Time { return now }))
    if err != nil {
        return "", "", err
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok || !tok.Valid {
        return "", "", jwt.ErrTokenInvalidClaims
    }
    if p, _ := claims["purpose"].(string); p != resetPurpose {
        return "", "", jwt.ErrTokenInvalidClaims
    }
    userID, _ = claims["sub"].(string)
    if userID == "" {
        return "", "", jwt.ErrTokenInvalidSubject
    }
    stamp, _ = claims["stamp"].(string)
    return userID, stamp, nil
}

// NewRefreshToken returns a cryptographically secure random token (raw) and
// its expiration time, ttlDays from now.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := RandomHex(48) // 48 bytes -> 96 hex chars
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// RandomHex returns n bytes of cryptographically secure random data, hex
// encoded.  Refresh tokens and order cancel tokens are built from it.
func RandomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
