// Package domain contains the core types for accounts, sessions, and the
// derived security score.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAuthor Role = "author"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuthor, RoleMember:
		return true
	default:
		return false
	}
}

// Account is the identity record. An account may authenticate with a
// password, a federated identity, or both; PasswordHash and
// FederatedSubject are nil when the corresponding mechanism is absent.
type Account struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	Email            string       `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash     *string      `gorm:"type:text"`
	FederatedSubject *string      `gorm:"column:federated_subject;type:text;index"`
	DisplayName      string       `gorm:"column:display_name;type:text;not null"`
	AvatarURL        string       `gorm:"column:avatar_url;type:text"`
	Bio              string       `gorm:"type:text"`
	Role             Role         `gorm:"type:text;not null"`
	Active           bool         `gorm:"not null;default:true"`
	EmailVerified    bool         `gorm:"column:email_verified;not null;default:false"`
	LastLoginAt      *time.Time   `gorm:"column:last_login_at"`
	CreatedAt        time.Time    `gorm:"not null"`
	UpdatedAt        time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// HasPassword reports whether the account can authenticate with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// HasFederatedIdentity reports whether a federated subject is linked.
func (a *Account) HasFederatedIdentity() bool {
	return a.FederatedSubject != nil && *a.FederatedSubject != ""
}

// DeviceType classifies the client device.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
)

// Session is a server-held authorization grant bound to one account.
// A session is valid iff RevokedAt is nil and ExpiresAt is in the future;
// revocation is monotonic. TokenHash stores a one-way digest of the issued
// bearer token for auditing and is never consulted during validation.
type Session struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	AccountID    snowflake.ID `gorm:"column:account_id;not null;index"`
	DeviceName   string       `gorm:"column:device_name;type:text"`
	DeviceType   DeviceType   `gorm:"column:device_type;type:text"`
	Browser      string       `gorm:"type:text"`
	OS           string       `gorm:"column:os;type:text"`
	IPAddress    string       `gorm:"column:ip_address;type:text"`
	Location     *string      `gorm:"type:text"`
	TokenHash    string       `gorm:"column:token_hash;type:text;not null"`
	ExpiresAt    time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt    *time.Time   `gorm:"column:revoked_at"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null"`
	LastActiveAt time.Time    `gorm:"column:last_active_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// ClientContext carries the raw connection metadata captured at login.
type ClientContext struct {
	UserAgent string
	IPAddress string
}

// ScoreFactors lists the inputs that contributed to a security score.
type ScoreFactors struct {
	HasPassword          bool `json:"hasPassword"`
	HasFederatedIdentity bool `json:"hasFederatedIdentity"`
	SessionCount         int  `json:"sessionCount"`
	EmailVerified        bool `json:"emailVerified"`
}

// SecurityScore is the derived 0-100 account-health score.
type SecurityScore struct {
	Score   int          `json:"score"`
	Level   string       `json:"level"`
	Factors ScoreFactors `json:"factors"`
}

// Identity is the verified output of the federated identity collaborator.
// The core trusts these fields verbatim.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
	AvatarURL   string
}
