package models

import "time"

// AdminCredential is the single shared admin PIN, stored as a bcrypt hash.
type AdminCredential struct {
	PINHash   string    `db:"pin_hash" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
