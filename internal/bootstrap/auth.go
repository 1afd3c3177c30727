package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/adapters/devauth"
	"github.com/target/fuzzysearch/internal/adapters/oidc"
	redisadapter "github.com/target/fuzzysearch/internal/adapters/redis"
	"github.com/target/fuzzysearch/internal/ports"
)

// AuthConfig contains configuration for the identity verifier.
type AuthConfig struct {
	Auth   config.AuthConfig
	Infra  *Infrastructure
	Logger *slog.Logger
}

// BuildVerifier creates the identity verifier for the configured auth mode.
//
//nolint:ireturn // verifier is chosen at runtime.
func BuildVerifier(ctx context.Context, cfg AuthConfig) (ports.IdentityVerifier, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeStatic, "":
		v, err := devauth.NewVerifier(cfg.Auth.Static.Tokens)
		if err != nil {
			return nil, fmt.Errorf("build static verifier: %w", err)
		}
		logger.InfoContext(ctx, "identity verifier ready", "mode", config.AuthModeStatic)
		return v, nil

	case config.AuthModeSession:
		if cfg.Infra == nil || cfg.Infra.Redis == nil {
			return nil, errors.New("session auth requires a redis connection")
		}
		store := redisadapter.NewSessionStore(cfg.Infra.Redis, cfg.Auth.SessionPrefix, nil)
		logger.InfoContext(ctx, "identity verifier ready", "mode", config.AuthModeSession)
		return redisadapter.NewSessionVerifier(store), nil

	case config.AuthModeOIDC:
		oc := cfg.Auth.OIDC
		if oc.Issuer == "" || oc.ClientID == "" {
			return nil, fmt.Errorf("oidc auth requires issuer and client id (issuer_empty=%t client_id_empty=%t)",
				oc.Issuer == "", oc.ClientID == "")
		}
		v, err := oidc.NewVerifier(ctx, oidc.VerifierConfig{ClientID: oc.ClientID, Issuer: oc.Issuer})
		if err != nil {
			return nil, fmt.Errorf("build oidc verifier: %w", err)
		}
		logger.InfoContext(ctx, "identity verifier ready", "mode", config.AuthModeOIDC, "issuer", oc.Issuer)
		return v, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}
