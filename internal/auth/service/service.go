// Package service implements the account lifecycle: registration, login,
// federated sync, profile management, and the dual-mode password flows.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/auth/password"
	"github.com/brightlearn/campus/internal/auth/token"
	"github.com/brightlearn/campus/internal/config"
	"github.com/brightlearn/campus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const (
	nameMinLength = 2
	nameMaxLength = 100
)

type service struct {
	accounts domain.Repository
	sessions domain.SessionManager
	issuer   *token.Issuer
	verifier domain.IdentityVerifier
	policy   *config.SecurityPolicyHolder
	node     *snowflake.Node
	log      *zap.Logger
}

func New(
	accounts domain.Repository,
	sessions domain.SessionManager,
	issuer *token.Issuer,
	verifier domain.IdentityVerifier,
	policy *config.SecurityPolicyHolder,
	node *snowflake.Node,
	log *zap.Logger,
) domain.Service {
	return &service{
		accounts: accounts,
		sessions: sessions,
		issuer:   issuer,
		verifier: verifier,
		policy:   policy,
		node:     node,
		log:      log.Named("auth"),
	}
}

func (s *service) passwordPolicy() password.Policy {
	return password.Policy{Extra: s.policy.Get().ExtraDeniedPasswords}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() {
		return nil, domain.ErrRoleInvalid
	}

	if result := s.passwordPolicy().Validate(req.Password); !result.Valid {
		return nil, policyError(result)
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		ID:           s.node.Generate(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: &hash,
		DisplayName:  strings.TrimSpace(req.Name),
		Role:         role,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("account registered",
		zap.String("account_id", account.ID.String()),
		zap.String("role", string(account.Role)))

	return s.openSession(ctx, account, req.Client)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		// uniform failure: unknown email is indistinguishable from a bad password
		return nil, domain.ErrInvalidCredentials
	}
	if !account.HasPassword() || !password.Verify(req.Password, *account.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !account.Active {
		return nil, domain.ErrAccountInactive
	}

	now := time.Now().UTC()
	if err := s.accounts.UpdateFields(ctx, account.ID, map[string]any{"last_login_at": now}); err != nil {
		s.log.Warn("last-login refresh failed",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
	}
	account.LastLoginAt = &now

	return s.openSession(ctx, account, req.Client)
}

func (s *service) FederatedSync(ctx context.Context, req domain.SyncRequest) (*domain.AuthResult, error) {
	identity, err := s.verifier.Verify(ctx, req.IdentityToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindBySubject(ctx, identity.SubjectID)
	switch {
	case err == nil:
		assign := map[string]any{}
		if identity.DisplayName != "" {
			assign["display_name"] = identity.DisplayName
		}
		if identity.AvatarURL != "" {
			assign["avatar_url"] = identity.AvatarURL
		}
		if len(assign) > 0 {
			if err := s.accounts.UpdateFields(ctx, account.ID, assign); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, domain.ErrAccountNotFound):
		account, err = s.upsertFederated(ctx, identity)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !account.Active {
		return nil, domain.ErrAccountInactive
	}

	return s.openSession(ctx, account, req.Client)
}

// upsertFederated links the identity onto an existing account with the same
// email, or creates a fresh member account. The provider vouches for the
// address, so new accounts start email-verified.
func (s *service) upsertFederated(ctx context.Context, identity *domain.Identity) (*domain.Account, error) {
	email := normalizeEmail(identity.Email)
	displayName := identity.DisplayName
	if displayName == "" {
		displayName = email
	}

	subject := identity.SubjectID
	create := &domain.Account{
		ID:               s.node.Generate(),
		Email:            email,
		FederatedSubject: &subject,
		DisplayName:      displayName,
		AvatarURL:        identity.AvatarURL,
		Role:             domain.RoleMember,
		Active:           true,
		EmailVerified:    true,
	}

	assign := map[string]any{
		"federated_subject": identity.SubjectID,
	}
	if identity.DisplayName != "" {
		assign["display_name"] = identity.DisplayName
	}
	if identity.AvatarURL != "" {
		assign["avatar_url"] = identity.AvatarURL
	}

	return s.accounts.UpsertByEmail(ctx, email, assign, create)
}

// openSession runs the ordered credential protocol: session row first, then
// the token embedding its id, then the digest backfill. A failed backfill is
// logged and tolerated since validation never reads the hash.
func (s *service) openSession(ctx context.Context, account *domain.Account, client domain.ClientContext) (*domain.AuthResult, error) {
	sess, err := s.sessions.Create(ctx, account.ID, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	signed, err := s.issuer.Mint(account.ID.String(), sess.ID.String(), account.Role)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.AttachToken(ctx, sess.ID, signed); err != nil {
		s.log.Warn("token digest backfill failed",
			zap.String("session_id", sess.ID.String()),
			zap.Error(err))
	}

	return &domain.AuthResult{Account: account, SessionID: sess.ID, Token: signed}, nil
}

func (s *service) Profile(ctx context.Context, accountID snowflake.ID) (*domain.Profile, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &domain.Profile{Account: account, HasPassword: account.HasPassword()}, nil
}

func (s *service) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.Account, error) {
	fields := map[string]any{}

	if req.Name != "" {
		if err := validateName(req.Name); err != nil {
			return nil, err
		}
		fields["display_name"] = strings.TrimSpace(req.Name)
	}
	if req.Email != "" {
		if err := validateEmail(req.Email); err != nil {
			return nil, err
		}
		email := normalizeEmail(req.Email)
		existing, err := s.accounts.FindByEmail(ctx, email)
		if err == nil && existing.ID != req.AccountID {
			return nil, domain.ErrEmailTaken
		}
		if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		fields["email"] = email
	}
	if req.Bio != "" {
		fields["bio"] = strings.TrimSpace(req.Bio)
	}

	if len(fields) > 0 {
		if err := s.accounts.UpdateFields(ctx, req.AccountID, fields); err != nil {
			return nil, err
		}
	}
	return s.accounts.FindByID(ctx, req.AccountID)
}

func (s *service) SetAvatar(ctx context.Context, accountID snowflake.ID, avatarURL string) (*domain.Account, error) {
	if err := s.accounts.UpdateFields(ctx, accountID, map[string]any{"avatar_url": avatarURL}); err != nil {
		return nil, err
	}
	return s.accounts.FindByID(ctx, accountID)
}

func (s *service) AddPassword(ctx context.Context, accountID snowflake.ID, newPassword, confirm string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.HasPassword() {
		return domain.ErrPasswordExists
	}
	if !account.HasFederatedIdentity() {
		return domain.ErrFederatedOnly
	}
	if newPassword != confirm {
		return domain.ErrPasswordMismatch
	}
	if result := s.passwordPolicy().Validate(newPassword); !result.Valid {
		return policyError(result)
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.accounts.UpdateFields(ctx, accountID, map[string]any{"password_hash": hash})
}

func (s *service) ChangePassword(ctx context.Context, accountID snowflake.ID, current, newPassword, confirm string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.HasPassword() {
		return domain.ErrPasswordNotSet
	}
	if !password.Verify(current, *account.PasswordHash) {
		return domain.ErrPasswordIncorrect
	}
	if newPassword != confirm {
		return domain.ErrPasswordMismatch
	}
	if password.IsReuse(newPassword, *account.PasswordHash) {
		return domain.ErrPasswordReuse
	}
	if result := s.passwordPolicy().Validate(newPassword); !result.Valid {
		return policyError(result)
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.accounts.UpdateFields(ctx, accountID, map[string]any{"password_hash": hash})
}

func (s *service) ListAccounts(ctx context.Context, limit int, pageToken string) ([]*domain.Account, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var afterID snowflake.ID
	if pageToken != "" {
		cursor, err := pagination.DecodeCursor(pageToken)
		if err != nil {
			return nil, "", &domain.ValidationError{Field: "page_token", Message: "is malformed"}
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, "", &domain.ValidationError{Field: "page_token", Message: "is malformed"}
		}
		afterID = id
	}

	accounts, err := s.accounts.List(ctx, limit+1, afterID)
	if err != nil {
		return nil, "", err
	}

	page, info := pagination.BuildCursorPageInfo(accounts, limit, func(a *domain.Account) string {
		encoded, _ := pagination.EncodeCursor(pagination.Cursor{ID: a.ID.String()})
		return encoded
	})
	if !info.HasMore {
		return page, "", nil
	}
	return page, info.NextPageToken, nil
}

func (s *service) UpdateRole(ctx context.Context, accountID snowflake.ID, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, domain.ErrRoleInvalid
	}
	if err := s.accounts.UpdateFields(ctx, accountID, map[string]any{"role": role}); err != nil {
		return nil, err
	}

	s.log.Info("account role changed",
		zap.String("account_id", accountID.String()),
		zap.String("role", string(role)))
	return s.accounts.FindByID(ctx, accountID)
}

func policyError(result password.Result) error {
	violations := make([]string, 0, len(result.Violations))
	for _, v := range result.Violations {
		violations = append(violations, v.Message)
	}
	return &domain.PolicyError{Violations: violations}
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < nameMinLength || len(trimmed) > nameMaxLength {
		return &domain.ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("must be between %d and %d characters", nameMinLength, nameMaxLength),
		}
	}
	return nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return &domain.ValidationError{Field: "email", Message: "is not a valid email address"}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
