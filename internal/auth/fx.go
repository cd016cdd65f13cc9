package auth

import (
	"github.com/brightlearn/campus/internal/auth/device"
	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/auth/identity"
	"github.com/brightlearn/campus/internal/auth/repository"
	"github.com/brightlearn/campus/internal/auth/score"
	"github.com/brightlearn/campus/internal/auth/service"
	"github.com/brightlearn/campus/internal/auth/session"
	"github.com/brightlearn/campus/internal/auth/token"
	"github.com/brightlearn/campus/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.NewAccountRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(newLocator),
	fx.Provide(session.NewManager),
	fx.Provide(func(m *session.Manager) domain.SessionManager { return m }),
	fx.Provide(token.NewIssuer),
	fx.Provide(newVerifier),
	fx.Provide(score.NewCalculator),
	fx.Provide(func(c *score.Calculator) domain.ScoreCalculator { return c }),
	fx.Provide(service.New),
)

func newLocator(cfg config.Config, log *zap.Logger) device.Locator {
	if !cfg.GeoLookupOn || cfg.GeoLookupURL == "" {
		return device.NoopLocator{}
	}
	return device.NewHTTPLocator(cfg.GeoLookupURL, log)
}

func newVerifier(cfg config.Config, log *zap.Logger) domain.IdentityVerifier {
	return identity.NewHTTPVerifier(cfg, log)
}
