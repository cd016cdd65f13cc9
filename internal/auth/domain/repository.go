package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository is the narrow persistence interface for Account rows. Email
// carries at-most-one-matching-unique-key semantics.
type Repository interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id snowflake.ID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindBySubject(ctx context.Context, subject string) (*Account, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	UpsertByEmail(ctx context.Context, email string, assign map[string]any, create *Account) (*Account, error)
	List(ctx context.Context, limit int, afterID snowflake.ID) ([]*Account, error)
}

// SessionRepository persists Session rows. No other subsystem writes them.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id snowflake.ID) (*Session, error)
	ActiveSessions(ctx context.Context, accountID snowflake.ID, now time.Time) ([]Session, error)
	UpdateTokenHash(ctx context.Context, id snowflake.ID, tokenHash string) error
	UpdateLastActive(ctx context.Context, id snowflake.ID, lastActive time.Time) error
	RevokeSession(ctx context.Context, id snowflake.ID, revokedAt time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
