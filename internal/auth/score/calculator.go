// Package score derives the 0-100 account security score from credential
// coverage and session hygiene.
package score

import (
	"context"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/bwmarrin/snowflake"
)

const (
	baseScore            = 40
	passwordBonus        = 20
	federatedBonus       = 15
	fewSessionsBonus     = 15
	emailVerifiedBonus   = 10
	maxHealthySessions   = 3
	levelExcellentFloor  = 80
	levelGoodFloor       = 50
	levelExcellent       = "Excellent"
	levelGood            = "Good"
	levelNeedsAttention  = "Needs Attention"
)

type Calculator struct {
	accounts domain.Repository
	sessions domain.SessionManager
}

func NewCalculator(accounts domain.Repository, sessions domain.SessionManager) *Calculator {
	return &Calculator{accounts: accounts, sessions: sessions}
}

var _ domain.ScoreCalculator = (*Calculator)(nil)

// Calculate is read-only: it never mutates the account or its sessions.
func (c *Calculator) Calculate(ctx context.Context, accountID snowflake.ID) (*domain.SecurityScore, error) {
	account, err := c.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	active, err := c.sessions.ActiveSessions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	factors := domain.ScoreFactors{
		HasPassword:          account.HasPassword(),
		HasFederatedIdentity: account.HasFederatedIdentity(),
		SessionCount:         len(active),
		EmailVerified:        account.EmailVerified,
	}

	total := baseScore
	if factors.HasPassword {
		total += passwordBonus
	}
	if factors.HasFederatedIdentity {
		total += federatedBonus
	}
	if factors.SessionCount <= maxHealthySessions {
		total += fewSessionsBonus
	}
	if factors.EmailVerified {
		total += emailVerifiedBonus
	}

	return &domain.SecurityScore{
		Score:   total,
		Level:   levelFor(total),
		Factors: factors,
	}, nil
}

func levelFor(total int) string {
	switch {
	case total >= levelExcellentFloor:
		return levelExcellent
	case total >= levelGoodFloor:
		return levelGood
	default:
		return levelNeedsAttention
	}
}
