package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for authentication.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUserNotFound = errors.New("user not found")
)

// Role distinguishes staff accounts from customer accounts.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// User is a login account. Customer accounts are linked to a customer record;
// admin accounts are not.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Principal identifies the authenticated caller of a core operation.
// CustomerID is zero for admin principals.
type Principal struct {
	UserID     int64
	Role       Role
	CustomerID int64
	Approved   bool
}

// IsAdmin reports whether the principal is a staff account.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// APIKeyInfo holds the identity data for a validated API key.
type APIKeyInfo struct {
	ID      int64
	UserID  int64
	KeyHash string
	Name    string
	Active  bool
}

// HashKey computes the hex-encoded HMAC-SHA256 of an API key under the given
// pepper. Keys are stored and looked up by this hash only.
func HashKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// UserRepository defines persistence operations for login accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListAdmins(ctx context.Context) ([]User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateEmail(ctx context.Context, id int64, email string) error
}
