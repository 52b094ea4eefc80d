// Package ecpay talks to the ECPay all-in-one (AIO) cashier: it signs
// checkout requests and verifies the server-to-server payment callback.
package ecpay

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// FieldCheckMac is the name of the signature field in both directions.
const FieldCheckMac = "CheckMacValue"

// CheckMacValue computes the SHA256 signature ECPay expects over fields.
// Any CheckMacValue entry in fields is ignored.
func CheckMacValue(fields map[string]string, hashKey, hashIV string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == FieldCheckMac {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := strings.ToLower(keys[i]), strings.ToLower(keys[j])
		if a == b {
			return keys[i] < keys[j]
		}
		return a < b
	})

	var b strings.Builder
	b.WriteString("HashKey=")
	b.WriteString(hashKey)
	for _, k := range keys {
		b.WriteByte('&')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	b.WriteString("&HashIV=")
	b.WriteString(hashIV)

	sum := sha256.Sum256([]byte(dotNetURLEncode(b.String())))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Verify reports whether fields carry a valid signature.
func Verify(fields map[string]string, hashKey, hashIV string) bool {
	got := fields[FieldCheckMac]
	if got == "" {
		return false
	}
	want := CheckMacValue(fields, hashKey, hashIV)
	return subtle.ConstantTimeCompare([]byte(strings.ToUpper(got)), []byte(want)) == 1
}

// dotNetURLEncode reproduces the encoding ECPay signs: percent-encode every
// byte outside the URI-component safe set, lowercase the whole string, then
// turn %20 into '+' and restore the characters .NET leaves unescaped.
func dotNetURLEncode(s string) string {
	const hexDigits = "0123456789abcdef"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		case strings.IndexByte("-_.!~*'()", c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}
