package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/devmadlani/auth-service/internal/config"
	"github.com/devmadlani/auth-service/internal/database"
	"github.com/devmadlani/auth-service/internal/keys"
	"github.com/devmadlani/auth-service/internal/model"
	"github.com/devmadlani/auth-service/internal/password"
	"github.com/devmadlani/auth-service/internal/queue"
	"github.com/devmadlani/auth-service/internal/repository"
	"github.com/devmadlani/auth-service/internal/service"
)

// openDB connects with the database settings only.
func openDB(ctx context.Context, v *viper.Viper) (*sql.DB, error) {
	cfg, err := config.LoadDB(v)
	if err != nil {
		return nil, err
	}
	return database.Open(ctx, cfg)
}

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openDB(cmd.Context(), v)
				if err != nil {
					return err
				}
				defer db.Close()
				applied, err := database.MigrateUp(cmd.Context(), db)
				if err != nil {
					return err
				}
				cmd.Printf("applied %d migration(s)\n", len(applied))
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd.Context(), v, func(p *goose.Provider) error {
					res, err := p.Down(cmd.Context())
					if errors.Is(err, goose.ErrNoNextVersion) {
						cmd.Println("nothing to roll back")
						return nil
					}
					if err != nil {
						return fmt.Errorf("failed to roll back: %w", err)
					}
					cmd.Printf("rolled back %d (%s)\n", res.Source.Version, res.Duration)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd.Context(), v, func(p *goose.Provider) error {
					statuses, err := p.Status(cmd.Context())
					if err != nil {
						return fmt.Errorf("failed to read migration status: %w", err)
					}
					for _, s := range statuses {
						applied := "-"
						if !s.AppliedAt.IsZero() {
							applied = s.AppliedAt.UTC().Format(time.RFC3339)
						}
						cmd.Printf("%05d  %-8s  %s\n", s.Source.Version, s.State, applied)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func withMigrator(ctx context.Context, v *viper.Viper, fn func(p *goose.Provider) error) error {
	db, err := openDB(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()
	p, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	return fn(p)
}

// newJWKSCmd prints the public key set for the configured signing key, so
// another deployment can be pointed at a static copy of it.
func newJWKSCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "jwks",
		Short: "Print the public JWKS for the configured keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadAuth(v)
			if cfg.PrivateKeyPath == "" {
				return keys.ErrNoSigningKey
			}
			p, err := keys.NewFileProvider(cfg.PrivateKeyPath, cfg.FallbackKeyPaths...)
			if err != nil {
				return err
			}
			set, err := keys.JWKS(cmd.Context(), p)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		},
	}
}

// newCreateAdminCmd bootstraps the first ADMIN account; every other
// account management route already requires one.
func newCreateAdminCmd(v *viper.Viper) *cobra.Command {
	var in service.CreateUserInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer db.Close()

			in.Role = model.RoleAdmin
			users := service.NewUserService(
				repository.NewStore(db),
				password.NewHasher(v.GetInt("bcrypt_cost")),
				queue.NopPublisher{},
			)
			id, err := users.Create(cmd.Context(), 0, in)
			if err != nil {
				return err
			}
			cmd.Printf("created admin %s with id %d\n", in.Email, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "User", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// newPruneTokensCmd deletes expired refresh token records. Expired records
// are already rejected on use; pruning only reclaims space.
func newPruneTokensCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-tokens",
		Short: "Delete expired refresh token records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := repository.NewTokenRepo(db).DeleteExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			cmd.Printf("deleted %d expired refresh token(s)\n", n)
			return nil
		},
	}
}

func newAuditCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Consume identity events into an audit log file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := v.GetString("rabbitmq_url")
			if url == "" {
				return fmt.Errorf("missing required env var: RABBITMQ_URL")
			}
			log, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			c := &queue.AuditConsumer{
				URL:     url,
				Queue:   v.GetString("audit_queue"),
				LogPath: v.GetString("audit_log_path"),
				Log:     log,
			}
			log.Info("audit consumer starting", zap.String("log_path", c.LogPath))
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("log-path", "audit.log", "file the audit lines are appended to")
	cmd.Flags().String("queue", queue.DefaultQueueName, "queue to consume")
	_ = v.BindPFlag("audit_log_path", cmd.Flags().Lookup("log-path"))
	_ = v.BindPFlag("audit_queue", cmd.Flags().Lookup("queue"))
	return cmd
}
