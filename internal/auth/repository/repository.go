// Package repository provides the gorm-backed persistence layer for
// accounts and sessions.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(conn *gorm.DB) domain.Repository {
	return &accountRepository{db: conn}
}

func (r *accountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Account{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *accountRepository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindBySubject(ctx context.Context, subject string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).First(&account, "federated_subject = ?", subject).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return domain.ErrEmailTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpsertByEmail creates the account when the email is unseen, otherwise
// applies assign to the existing row. The unique index on email arbitrates
// concurrent syncs: a losing create falls through to the update path.
func (r *accountRepository) UpsertByEmail(ctx context.Context, email string, assign map[string]any, create *domain.Account) (*domain.Account, error) {
	var existing domain.Account
	err := r.db.WithContext(ctx).First(&existing, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		createErr := r.db.WithContext(ctx).Create(create).Error
		if createErr == nil {
			return create, nil
		}
		if !db.IsDuplicateKeyErr(createErr) {
			return nil, createErr
		}
		// lost the race, the row exists now
		if err := r.db.WithContext(ctx).First(&existing, "email = ?", email).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if len(assign) > 0 {
		if err := r.db.WithContext(ctx).Model(&existing).Updates(assign).Error; err != nil {
			return nil, err
		}
	}
	if err := r.db.WithContext(ctx).First(&existing, "id = ?", existing.ID).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *accountRepository) List(ctx context.Context, limit int, afterID snowflake.ID) ([]*domain.Account, error) {
	var accounts []*domain.Account
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != 0 {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(conn *gorm.DB) domain.SessionRepository {
	return &sessionRepository{db: conn}
}

func (r *sessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetSession(ctx context.Context, id snowflake.ID) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ActiveSessions(ctx context.Context, accountID snowflake.ID, now time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND revoked_at IS NULL AND expires_at > ?", accountID, now).
		Order("last_active_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) UpdateTokenHash(ctx context.Context, id snowflake.ID, tokenHash string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Update("token_hash", tokenHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) UpdateLastActive(ctx context.Context, id snowflake.ID, lastActive time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Update("last_active_at", lastActive)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// RevokeSession is idempotent: revoking an already-revoked session keeps
// the original timestamp.
func (r *sessionRepository) RevokeSession(ctx context.Context, id snowflake.ID, revokedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", revokedAt)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *sessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&domain.Session{})
	return result.RowsAffected, result.Error
}

func (r *sessionRepository) DeleteRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("revoked_at IS NOT NULL AND revoked_at < ?", cutoff).
		Delete(&domain.Session{})
	return result.RowsAffected, result.Error
}
