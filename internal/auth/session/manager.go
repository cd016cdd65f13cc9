// Package session implements the session lifecycle: creation with device
// fingerprinting, validation, activity tracking, revocation, and cleanup.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/brightlearn/campus/internal/auth/device"
	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/clock"
	"github.com/brightlearn/campus/internal/config"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// tokenHashPending marks a session row whose token digest has not been
// backfilled yet. Validation never reads the hash, so a session is fully
// usable while it carries the placeholder.
const tokenHashPending = "pending"

type Manager struct {
	sessions domain.SessionRepository
	locator  device.Locator
	policy   *config.SecurityPolicyHolder
	clock    clock.Clock
	node     *snowflake.Node
	log      *zap.Logger
}

func NewManager(
	sessions domain.SessionRepository,
	locator device.Locator,
	policy *config.SecurityPolicyHolder,
	clk clock.Clock,
	node *snowflake.Node,
	log *zap.Logger,
) *Manager {
	return &Manager{
		sessions: sessions,
		locator:  locator,
		policy:   policy,
		clock:    clk,
		node:     node,
		log:      log.Named("session"),
	}
}

var _ domain.SessionManager = (*Manager)(nil)

// Create records a new session for the account. Device metadata is derived
// from the user agent; geo lookup is best-effort and never blocks creation
// beyond the locator's own timeout.
func (m *Manager) Create(ctx context.Context, accountID snowflake.ID, client domain.ClientContext) (*domain.Session, error) {
	now := m.clock.Now()
	ttl := time.Duration(m.policy.Get().SessionTTLDays) * 24 * time.Hour
	info := device.Parse(client.UserAgent)

	sess := &domain.Session{
		ID:           m.node.Generate(),
		AccountID:    accountID,
		DeviceName:   info.Name,
		DeviceType:   info.Type,
		Browser:      info.Browser,
		OS:           info.OS,
		IPAddress:    client.IPAddress,
		TokenHash:    tokenHashPending,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
		LastActiveAt: now,
	}

	if client.IPAddress != "" {
		if label, ok := m.locator.Locate(ctx, client.IPAddress); ok {
			sess.Location = &label
		}
	}

	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// AttachToken backfills the digest of the issued token onto the session row.
func (m *Manager) AttachToken(ctx context.Context, sessionID snowflake.ID, rawToken string) error {
	sum := sha256.Sum256([]byte(rawToken))
	return m.sessions.UpdateTokenHash(ctx, sessionID, hex.EncodeToString(sum[:]))
}

// Validate reports whether the session exists, is unrevoked, and has not
// expired. Any lookup failure counts as invalid.
func (m *Manager) Validate(ctx context.Context, sessionID snowflake.ID) bool {
	sess, err := m.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return false
	}
	if sess.RevokedAt != nil {
		return false
	}
	return sess.ExpiresAt.After(m.clock.Now())
}

// Touch updates the session's last-active timestamp. Failures are logged
// and swallowed; activity tracking must never fail a request.
func (m *Manager) Touch(ctx context.Context, sessionID snowflake.ID) {
	if err := m.sessions.UpdateLastActive(ctx, sessionID, m.clock.Now()); err != nil {
		m.log.Debug("last-active update skipped",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
	}
}

func (m *Manager) ActiveSessions(ctx context.Context, accountID snowflake.ID) ([]domain.Session, error) {
	return m.sessions.ActiveSessions(ctx, accountID, m.clock.Now())
}

// Revoke cancels another session of the same account. The session currently
// in use cannot revoke itself, and sessions of other accounts are opaque:
// the requester gets a forbidden error, not a not-found probe.
func (m *Manager) Revoke(ctx context.Context, sessionID, requesterID, currentSessionID snowflake.ID) error {
	if sessionID == currentSessionID {
		return domain.ErrSelfRevocation
	}

	sess, err := m.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.AccountID != requesterID {
		return domain.ErrSessionForbidden
	}

	return m.sessions.RevokeSession(ctx, sessionID, m.clock.Now())
}

// Cleanup deletes expired sessions and revoked sessions past the retention
// window, returning the number of rows removed.
func (m *Manager) Cleanup(ctx context.Context) (int64, error) {
	now := m.clock.Now()

	expired, err := m.sessions.DeleteExpiredBefore(ctx, now)
	if err != nil {
		return expired, err
	}

	retention := m.policy.Get().RevokedRetention
	revoked, err := m.sessions.DeleteRevokedBefore(ctx, now.Add(-retention))
	if err != nil {
		return expired + revoked, err
	}

	if expired+revoked > 0 {
		m.log.Info("session cleanup completed",
			zap.Int64("expired_deleted", expired),
			zap.Int64("revoked_deleted", revoked))
	}
	return expired + revoked, nil
}
