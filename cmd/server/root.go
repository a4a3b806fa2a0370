package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra" // command tree and flags
	"github.com/spf13/viper" // settings shared by every command
	"go.uber.org/zap"

	"github.com/devmadlani/auth-service/internal/config"
	"github.com/devmadlani/auth-service/internal/keys"
	"github.com/devmadlani/auth-service/internal/logger"
)

// newRootCmd builds the command tree. Running the binary without a
// subcommand serves the API.
func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:           "auth-service",
		Short:         "Multi-tenant identity service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log encoding (console or json)")
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log_format", root.PersistentFlags().Lookup("log-format"))

	serve := newServeCmd(v)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newMigrateCmd(v),
		newJWKSCmd(v),
		newCreateAdminCmd(v),
		newAuditCmd(v),
		newPruneTokensCmd(v),
	)
	return root
}

// newLogger builds the process logger from the log_level and log_format
// settings.
func newLogger(v *viper.Viper) (*zap.Logger, error) {
	return logger.New(os.Stderr, logger.Config{
		Level:  v.GetString("log_level"),
		Format: v.GetString("log_format"),
	})
}

// newKeyProvider loads the signing key from disk. Without a configured key
// an ephemeral one is generated, which invalidates every issued token on
// restart; config.Load refuses that combination in production.
func newKeyProvider(cfg config.AuthConfig, log *zap.Logger) (keys.Provider, error) {
	if cfg.PrivateKeyPath == "" {
		log.Warn("PRIVATE_KEY_PATH is not set, generating an ephemeral signing key")
		p, err := keys.NewGeneratingProvider()
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	p, err := keys.NewFileProvider(cfg.PrivateKeyPath, cfg.FallbackKeyPaths...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
