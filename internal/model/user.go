package model

import "time"

// User represents a member record as stored in the `users` table.  Point is
// the denormalized balance; only the points ledger writes it.
//
// Fields:
//  ID           – uuid primary key.
//  Account      – unique login name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Name, Phone  – contact details copied onto orders.
//  Role         – CUSTOMER or OWNER.
//  Point        – current loyalty balance, never negative.
//  IsActive     – whether the account is active.
type User struct {
    ID           string    `json:"id"`              // users.id
    Account      string    `json:"account"`         // users.account
    Email        string    `json:"email"`           // users.email
    PasswordHash string    `json:"-"`               // users.password_hash
    Name         string    `json:"name"`            // users.name
    Phone        string    `json:"phone,omitempty"` // users.phone (nullable)
    Role         string    `json:"role"`            // users.role
    Point        int       `json:"point"`           // users.point
    IsActive     bool      `json:"is_active"`       // users.is_active
    CreatedAt    time.Time `json:"created_at"`      // users.created_at
    UpdatedAt    time.Time `json:"updated_at"`      // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    string     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
