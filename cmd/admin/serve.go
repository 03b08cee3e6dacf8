package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"finitefield.org/tutor-admin/internal/admin/authstate"
	"finitefield.org/tutor-admin/internal/admin/config"
	"finitefield.org/tutor-admin/internal/admin/httpserver"
	"finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/i18n"
	"finitefield.org/tutor-admin/internal/admin/identity"
	"finitefield.org/tutor-admin/internal/admin/observability"
	"finitefield.org/tutor-admin/internal/admin/session"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var devAccounts []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, devAccounts)
		},
	}
	cmd.Flags().StringSliceVar(&devAccounts, "dev-account", nil, "email:password seeded into the in-memory provider when Firebase is not configured")
	return cmd
}

func serve(parent context.Context, cfg config.Config, devAccounts []string) error {
	if parent == nil {
		parent = context.Background()
	}
	logger, err := observability.NewLogger(observability.LoggerConfig{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("environment", cfg.Server.Environment))

	bundle, err := i18n.Load(cfg.Login.DefaultLocale)
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(session.Config{
		HashKey:      []byte(cfg.Session.HashKey),
		BlockKey:     []byte(cfg.Session.BlockKey),
		CookiePath:   cfg.Server.BasePath,
		CookieSecure: cfg.Server.SecureCookie,
		IdleTimeout:  cfg.Session.IdleTimeout,
		Lifetime:     cfg.Session.Lifetime,
	})
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}

	provider, authenticator, err := buildIdentity(parent, cfg, devAccounts, logger)
	if err != nil {
		return err
	}

	registry := authstate.NewRegistry(provider, bundle,
		authstate.WithIdleTTL(cfg.Login.ViewIdleTTL),
		authstate.WithLogger(logger.Named("login")),
	)
	defer registry.Close()

	srv, err := httpserver.New(httpserver.Config{
		Address:           cfg.Server.Addr,
		BasePath:          cfg.Server.BasePath,
		LoginPath:         cfg.Server.LoginPath,
		Environment:       cfg.Server.Environment,
		Authenticator:     authenticator,
		Sessions:          sessions,
		Registry:          registry,
		Bundle:            bundle,
		Logger:            logger,
		MinPasswordLength: cfg.Login.PasswordMinLength,
		SubmitWait:        cfg.Login.SubmitWait,
		CSRFCookieSecure:  cfg.Server.SecureCookie,
		MetricsPath:       cfg.Server.MetricsPath,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("admin server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("base_path", cfg.Server.BasePath),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("admin server stopped")
	return nil
}

// buildIdentity wires the Firebase-backed provider and token verifier, or an
// in-memory provider with the passthrough authenticator for local work.
func buildIdentity(ctx context.Context, cfg config.Config, devAccounts []string, logger *zap.Logger) (authstate.Provider, middleware.Authenticator, error) {
	if !cfg.UsesFirebase() {
		accounts, err := parseDevAccounts(devAccounts)
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("ADMIN_FIREBASE_PROJECT_ID not set; using in-memory identity provider",
			zap.Int("accounts", len(accounts)),
		)
		return identity.NewStaticProvider(accounts), middleware.DefaultAuthenticator(), nil
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.Firebase.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("init firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init firebase auth client: %w", err)
	}

	client, err := identity.NewClient(cfg.Firebase.APIKey,
		identity.WithEndpoint(cfg.Identity.Endpoint),
		identity.WithTimeout(cfg.Identity.Timeout),
		identity.WithPasswordUpdater(authClient),
	)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("firebase identity enabled", zap.String("project", cfg.Firebase.ProjectID))
	return client, middleware.NewFirebaseAuthenticator(authClient, middleware.WithRevocationCheck()), nil
}

var _ identity.PasswordUpdater = (*firebaseauth.Client)(nil)

func parseDevAccounts(values []string) (map[string]string, error) {
	accounts := make(map[string]string, len(values))
	for _, value := range values {
		email, password, ok := strings.Cut(value, ":")
		if !ok || strings.TrimSpace(email) == "" || password == "" {
			return nil, fmt.Errorf("invalid --dev-account %q: want email:password", value)
		}
		accounts[strings.TrimSpace(email)] = password
	}
	return accounts, nil
}
