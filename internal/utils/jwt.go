package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for every access-token verification failure:
// bad signature, malformed token, wrong algorithm, or expiry. Callers must
// not learn which, so there is exactly one error value.
var ErrTokenInvalid = errors.New("invalid or expired token")

// AccessClaims is the identity asserted by an access token. Access tokens are
// stateless; verifying one never touches the store.
type AccessClaims struct {
	UserID uint64 // subject id ("sub")
	Email  string // "email"
	Role   string // "role"
}

// AccessToken is a signed HS256 JWT along with its expiry. The Token field is
// sent to the client in the JSON body and presented back in the
// Authorization header; it is never written into a cookie.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is a long-lived opaque token used solely to obtain new access
// tokens. The Raw field is the value handed to the client (and set in the
// refresh cookie); only its SHA-256 hash is persisted.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT carrying the subject id, email
// and role plus standard exp/iat claims. ttlMin fixes the token lifetime in
// minutes.
func NewAccessToken(secret string, c AccessClaims, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   c.UserID,
		"email": c.Email,
		"role":  c.Role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken checks the signature and expiry of a serialized access
// token and returns its claims. Any failure maps to ErrTokenInvalid.
func VerifyAccessToken(secret, raw string) (AccessClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return AccessClaims{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, ErrTokenInvalid
	}
	// Numbers decode as float64 from JSON.
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return AccessClaims{}, ErrTokenInvalid
	}
	out := AccessClaims{UserID: uint64(sub)}
	if v, ok := claims["email"].(string); ok {
		out.Email = v
	}
	if v, ok := claims["role"].(string); ok {
		out.Role = v
	}
	return out, nil
}

// NewRefreshToken returns a cryptographically random opaque token and its
// expiration time. ttlDays controls how many days the token is valid.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string. Only the hash is persisted, so a leaked database copy cannot be
// replayed as live sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
