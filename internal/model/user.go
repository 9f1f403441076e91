package model

import "time"

// Roles a user can hold. The role travels inside the access token and is
// attached to the request context by the auth middleware.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an application user record as stored in the `users` table.
// Each field corresponds to a column. The password hash and the refresh
// tokens never leave the service; handlers respond with Public().
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	Email        – unique email address, stored lowercase/trimmed.
//	PasswordHash – bcrypt hashed password.
//	Role         – "user" or "admin".
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// PublicUser is the outward-facing shape of a user. It deliberately has no
// place for the password hash or the refresh-token list, so no code path can
// serialize them by accident.
type PublicUser struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public returns the sanitized view of the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshTokenRecord models an entry in the `refresh_tokens` table. Each
// record belongs to a user. The plain token is not stored; only its SHA-256
// hash. UserAgent and IP are advisory context captured at issuance and play
// no part in validation.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA-256 hex digest of the token value.
//	ExpiresAt – expiration timestamp of the token.
//	UserAgent – client user agent at issuance.
//	IP        – client address at issuance.
//	CreatedAt – timestamp of creation.
type RefreshTokenRecord struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	UserAgent string    // refresh_tokens.user_agent
	IP        string    // refresh_tokens.ip
	CreatedAt time.Time // refresh_tokens.created_at
}

// Expired reports whether the record's expiry has passed at the given time.
func (r RefreshTokenRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
