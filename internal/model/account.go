package model

import "time"

// Verification purposes stored in verification_codes.purpose.
const (
    PurposeEmailChange   = "email_change"
    PurposePasswordReset = "password_reset"
)

// VerificationCode is a six-digit code mailed to a member.  For an email
// change Email is the new address; for a password reset it is the address
// on file when the code was issued.
type VerificationCode struct {
    ID        uint64    // verification_codes.id
    UserID    string    // verification_codes.user_id
    Purpose   string    // email_change | password_reset
    Email     string    // verification_codes.email
    Code      string    // verification_codes.code
    Attempts  int       // wrong guesses so far
    ExpiresAt time.Time // verification_codes.expires_at
    CreatedAt time.Time // verification_codes.created_at
}

// ContactMessage is a visitor's note from the public contact form.
type ContactMessage struct {
    ID        uint64    `json:"id"`
    Name      string    `json:"name"`
    Phone     string    `json:"phone_number"`
    Email     string    `json:"email"`
    Msg       string    `json:"msg"`
    CreatedAt time.Time `json:"created_at"`
}
