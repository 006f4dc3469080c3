package model

import "time"

// APIKey authenticates inbound requests. The engine treats a valid key as
// an opaque "caller is account X" fact; KeyHash is the SHA-256 hex of the
// raw key, the raw key is never stored.
type APIKey struct {
	ID         string     `db:"id"`
	AccountID  int64      `db:"account_id"`
	KeyHash    string     `db:"key_hash"`
	KeyPreview string     `db:"key_preview"`
	Name       string     `db:"name"`
	IsActive   bool       `db:"is_active"`
	LastUsedAt *time.Time `db:"last_used_at"`
	CreatedAt  time.Time  `db:"created_at"`
}
