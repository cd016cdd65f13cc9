package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SecurityPolicy holds the tunable account-security knobs. Values are read
// from security.yml and hot-reloaded when the file changes; the compiled-in
// defaults apply when no file is present.
type SecurityPolicy struct {
	SessionTTLDays       int           `mapstructure:"sessionTtlDays"`
	TokenTTLDays         int           `mapstructure:"tokenTtlDays"`
	RevokedRetention     time.Duration `mapstructure:"revokedRetention"`
	ExtraDeniedPasswords []string      `mapstructure:"extraDeniedPasswords"`
}

func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		SessionTTLDays:   30,
		TokenTTLDays:     7,
		RevokedRetention: 30 * 24 * time.Hour,
	}
}

type SecurityPolicyHolder struct {
	current atomic.Value // holds SecurityPolicy
}

func NewSecurityPolicyHolder() (*SecurityPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("security")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/campus/config")
	v.AddConfigPath("/etc/campus")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CAMPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSecurityPolicy()
		v.SetDefault("security.sessionTtlDays", defaults.SessionTTLDays)
		v.SetDefault("security.tokenTtlDays", defaults.TokenTTLDays)
		v.SetDefault("security.revokedRetention", defaults.RevokedRetention)
	}

	var cfg SecurityPolicy
	if err := v.UnmarshalKey("security", &cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := validateSecurityPolicy(cfg); err != nil {
		return nil, err
	}

	holder := &SecurityPolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SecurityPolicy
		if err := v.UnmarshalKey("security", &updated); err != nil {
			log.Printf("[security-config] reload failed: %v", err)
			return
		}
		updated = updated.withDefaults()
		if err := validateSecurityPolicy(updated); err != nil {
			log.Printf("[security-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[security-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *SecurityPolicyHolder) Get() SecurityPolicy {
	return h.current.Load().(SecurityPolicy)
}

// NewStaticSecurityPolicyHolder wraps a fixed policy, for tests and
// callers that do not want file watching.
func NewStaticSecurityPolicyHolder(cfg SecurityPolicy) *SecurityPolicyHolder {
	holder := &SecurityPolicyHolder{}
	holder.current.Store(cfg.withDefaults())
	return holder
}

func (p SecurityPolicy) withDefaults() SecurityPolicy {
	defaults := DefaultSecurityPolicy()
	if p.SessionTTLDays <= 0 {
		p.SessionTTLDays = defaults.SessionTTLDays
	}
	if p.TokenTTLDays <= 0 {
		p.TokenTTLDays = defaults.TokenTTLDays
	}
	if p.RevokedRetention <= 0 {
		p.RevokedRetention = defaults.RevokedRetention
	}
	return p
}

func validateSecurityPolicy(cfg SecurityPolicy) error {
	if cfg.TokenTTLDays > cfg.SessionTTLDays {
		return errors.New("security.tokenTtlDays cannot exceed security.sessionTtlDays")
	}
	return nil
}
