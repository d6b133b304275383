package models

import (
	"time"
)

// APIKey authenticates merchant API calls. Only the bcrypt hash of the
// secret part is stored; Prefix is the lookup handle.
type APIKey struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	MerchantID uint       `gorm:"index;not null" json:"merchant_id"`
	Name       string     `json:"name"`
	Prefix     string     `gorm:"uniqueIndex;not null" json:"prefix"`
	SecretHash string     `gorm:"not null" json:"-"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
