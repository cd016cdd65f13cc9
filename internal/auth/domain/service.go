package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service owns account lifecycle and credential operations. Every call that
// issues a credential performs the ordered two-step protocol: create the
// session row, mint the token embedding its id, then backfill the token
// digest onto the row.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	FederatedSync(ctx context.Context, req SyncRequest) (*AuthResult, error)

	Profile(ctx context.Context, accountID snowflake.ID) (*Profile, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Account, error)
	SetAvatar(ctx context.Context, accountID snowflake.ID, avatarURL string) (*Account, error)

	AddPassword(ctx context.Context, accountID snowflake.ID, newPassword, confirm string) error
	ChangePassword(ctx context.Context, accountID snowflake.ID, current, newPassword, confirm string) error

	ListAccounts(ctx context.Context, limit int, pageToken string) ([]*Account, string, error)
	UpdateRole(ctx context.Context, accountID snowflake.ID, role Role) (*Account, error)
}

// SessionManager owns the session lifecycle state machine.
type SessionManager interface {
	Create(ctx context.Context, accountID snowflake.ID, client ClientContext) (*Session, error)
	AttachToken(ctx context.Context, sessionID snowflake.ID, rawToken string) error
	Validate(ctx context.Context, sessionID snowflake.ID) bool
	Touch(ctx context.Context, sessionID snowflake.ID)
	ActiveSessions(ctx context.Context, accountID snowflake.ID) ([]Session, error)
	Revoke(ctx context.Context, sessionID, requesterID, currentSessionID snowflake.ID) error
	Cleanup(ctx context.Context) (int64, error)
}

// ScoreCalculator derives the on-demand account security score.
type ScoreCalculator interface {
	Calculate(ctx context.Context, accountID snowflake.ID) (*SecurityScore, error)
}

// IdentityVerifier is the boundary to the external federated identity
// provider. Implementations validate the third-party token and return the
// verified subject; the core never inspects the token itself.
type IdentityVerifier interface {
	Verify(ctx context.Context, identityToken string) (*Identity, error)
}

type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Role     Role
	Client   ClientContext
}

type LoginRequest struct {
	Email    string
	Password string
	Client   ClientContext
}

type SyncRequest struct {
	IdentityToken string
	Client        ClientContext
}

type UpdateProfileRequest struct {
	AccountID snowflake.ID
	Name      string
	Email     string
	Bio       string
}

// AuthResult pairs the account with its freshly minted credential.
type AuthResult struct {
	Account   *Account
	SessionID snowflake.ID
	Token     string
}

// Profile is the account projection returned to its owner. It reveals
// whether a password is set but never the hash itself.
type Profile struct {
	Account     *Account
	HasPassword bool
}
